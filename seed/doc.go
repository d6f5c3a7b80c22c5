// Package seed provides the demo technicians and imports technician lists
// from YAML or JSON files.
package seed
