// Package fileutil provides small filesystem helpers shared by provisioning
// and the bridge.
package fileutil
