// Temporarily replace Go functions at runtime
//
// Patch overwrites the first few bytes of a compiled function with a jump to
// another function of the same type, and returns a Guard that puts the
// original bytes back. It's meant for tests and instrumentation that need to
// intercept a call without touching the call sites.
//
// The jump is the shortest one that reaches: a 2 byte JMP rel8, a 5 byte JMP
// rel32, or an absolute jump through a scratch register (12 bytes on amd64).
// On arm64 it's a single B, or an LDR/BR pair followed by the address.
//
// Limitations:
//   - Supports amd64, 386 and arm64 on Linux, the BSDs and Windows
//   - Silently fails to patch inlined calls
//   - Silently fails to patch generic functions called directly
//   - Functions that are shorter than the jump are only detected when their
//     first instruction is a return
//   - Nothing stops a patched function from running on another goroutine
//     while it's being rewritten
package hotpatch
