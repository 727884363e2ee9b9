// Package sim implements the elementary cellular automaton engine.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All state — the current row, the generation pointer, the full
// per-generation history — is owned by the goroutine running Engine.Run.
// Control methods (Start, Stop, Reset, Apply, Snapshot) submit commands
// over a channel and block until the loop has applied them. This gives:
//   - Atomic reconfiguration: an observer never sees a row length that
//     disagrees with the configured width
//   - Synchronous updates: generation g+1 is computed entirely from
//     generation g before anything is published
//   - No dangling timers: the tick channel is nilled out before the
//     ticker is torn down, so no tick fires after teardown
//
// Tick Processing Flow:
//  1. Start seeds generation 0, assigns a run token, creates the ticker
//  2. Each tick computes the next row with the rule table and the
//     configured boundary, appends it whole to history, advances the
//     pointer
//  3. Reaching the generation bound tears the ticker down and returns
//     to idle, leaving the final generation in place
//
// Stopping mid-run leaves the last fully computed generation intact; a
// generation is only ever appended once computed for all cells.
package sim
