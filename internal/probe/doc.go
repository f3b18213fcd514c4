// Package probe determines when the supervised service is ready to accept
// traffic by polling its HTTP endpoint with a bounded attempt budget.
package probe
