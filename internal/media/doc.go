// Package media resolves stored audio/image references to time-limited
// access URLs. The engine never touches raw bytes; upload and storage live
// behind the platform's file service, and this package only signs links to
// it.
package media
