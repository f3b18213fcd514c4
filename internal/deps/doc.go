// Package deps checks availability of the external binaries the supervised
// service needs before launch.
package deps
