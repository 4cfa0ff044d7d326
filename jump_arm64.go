package hotpatch

var hostEncoder encoder = arm64Encoder{}
