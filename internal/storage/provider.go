// Package storage picks the storage and hosting adapters from config.
package storage

import "slidecast/internal/ports"

// Provider is the storage contract used across API and Worker.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
