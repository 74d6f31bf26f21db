package ptyproxy

import "github.com/kaplanelad/shellfirm-go/internal/shellfirmconfig"

// DelimiterByte resolves a wrapper's configured delimiter string (";" or
// "\n" in practice) to the single byte InputBuffer watches for.
func DelimiterByte(w shellfirmconfig.Wrapper) byte {
	if w.Delimiter == "" {
		return '\n'
	}
	return w.Delimiter[0]
}

// LookupWrapper finds the configured wrapper for binary, falling back to
// the builtin table entry of the same name if the user did not override
// it, and to a newline-delimited default if binary is entirely unknown.
func LookupWrapper(binary string, configured []shellfirmconfig.Wrapper) shellfirmconfig.Wrapper {
	for _, w := range configured {
		if w.Binary == binary {
			return w
		}
	}
	for _, w := range shellfirmconfig.BuiltinWrappers() {
		if w.Binary == binary {
			return w
		}
	}
	return shellfirmconfig.Wrapper{Binary: binary, Delimiter: "\n"}
}
