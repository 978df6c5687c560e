// Package internal contains the implementation packages of wxjsx.
//
// # Package Organization
//
// The compiler itself is a three stage pipeline:
//
//   - lexer: source text to tag, attribute and text tokens
//   - parser: tokens to a document tree
//   - generator: document tree to component markup
//   - compiler: wires the stages and maps options onto them
//
// The tooling around it:
//
//   - registry: documents discovered on disk, with change events
//   - scanner: walks source directories and fills the registry
//   - build: concurrent batch builds with a content addressed cache
//   - watcher: fsnotify based change detection with debouncing
//   - orchestrator: ties scanning, building and watching together
//   - server: live preview over HTTP and websockets
//   - lint: findings on trees that compile but look wrong
//   - config, logging, errors, validation, version: shared infrastructure
//
// # Data Flow
//
//   - The scanner registers documents; the registry notifies watchers
//   - The build pipeline compiles registry documents and reports results
//     to callbacks
//   - The watcher reports file changes to the orchestrator, which rescans
//     and rebuilds only what changed
//   - The server forwards build results to connected browsers
package internal
