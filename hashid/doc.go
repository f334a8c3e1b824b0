// Package hashid turns numeric database keys into opaque, reversible cursor
// strings. Each entity family has its own salt so ids are not interchangeable
// between families. This is obfuscation, not access control.
package hashid
