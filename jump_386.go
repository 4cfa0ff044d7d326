package hotpatch

// Every rel32 reaches the whole 32-bit address space, so the absolute form is
// never chosen here.
var hostEncoder encoder = x86Encoder{width: 32}
