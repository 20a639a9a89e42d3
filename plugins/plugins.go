// Package plugins registers every built-in algorithm with the stegapy
// registry, mirroring how image format decoders are enabled by blank
// import. Import it for side effects:
//
//	import _ "github.com/MearaY/stegapy/plugins"
package plugins

import (
	_ "github.com/MearaY/stegapy/dugad"
	_ "github.com/MearaY/stegapy/lsb"
	_ "github.com/MearaY/stegapy/randlsb"
)
