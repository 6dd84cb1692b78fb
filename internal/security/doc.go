// Package security derives the posture report exposed by Engine.SecurityReport.
//
// # What this package must NOT do
//
//   - Import bruteguard or perform I/O; it works on plain values only.
package security
