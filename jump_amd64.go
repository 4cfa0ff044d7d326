package hotpatch

var hostEncoder encoder = x86Encoder{width: 64}
