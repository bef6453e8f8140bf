// Package ir provides the value and declaration types shared by slotgraph.
//
// This package contains type definitions and encoding helpers only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Slot values are sealed IRValue types. There is no float type, so
//     canonical encodings are byte-stable across platforms.
//   - All JSON tags use snake_case
//   - Passes are ordered by a logical seq, never wall-clock time
package ir
