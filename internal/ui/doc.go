// Package ui contains the Bubble Tea program for browsing folders of shell
// scripts. The Model type only orchestrates messages; helpers in this package
// own input handling, dialogs, rendering, and store synchronisation.
//
// Message flow:
//   - Key presses become Commands dispatched onto the shared message queue.
//     The model never mutates the store directly except through the Reducer's
//     dialog intent setters.
//   - A frame tick (frameMsg) drains the queue through the pump, reports
//     completions on the status line, then copies the store snapshot into the
//     two column levels (internal/ui/state.Level).
//   - Dialogs follow the store: a delete, rename, or edit intent in the store
//     opens the matching confirmation or form, and a dialog whose intent has
//     been cleared (for example because the folder was deleted meanwhile)
//     closes on the next frame.
//   - A confirmed dialog stays open, ignoring input, until the Completion for
//     the command it dispatched comes back. It then closes whether the command
//     succeeded or failed.
//
// Backend interactions:
//   - A backend.Watcher reports external writes to the database file; each
//     one is dispatched as an ExternalChange command so the data dispatcher
//     requeries the store.
//   - Scripts run through a Launcher, normally *runner.Runner, which starts
//     the command without blocking the event loop.
//   - "y" copies the script under the cursor with atotto/clipboard.
//
// Harness drives a model without a terminal so whole interactions can be
// tested end to end against an in-memory database.
package ui
