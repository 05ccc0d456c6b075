// Package environment names the deployment environments the service can run
// in and normalizes the short aliases operators tend to type (dev, stage, prod).
package environment
