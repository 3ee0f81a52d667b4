// Package validate checks artifact streams the way a downstream consumer
// would. The emitter never validates what it writes; this package is used
// by the command-line tools and by tests.
//
// Two layers are available:
//   - ShapeValidator checks one line against an embedded CUE schema
//   - Checker follows a whole stream and checks ordering and pairing:
//     sequence numbers, timestamps, start/end pairs, step nesting, leaf
//     containment, measurement series bookkeeping and DUT references
package validate
