// Package domain defines the core entities of the haven collection engine:
// fences and gaps, candidate records, run statistics and scope configuration.
// It has no dependencies on adapters or services.
package domain
