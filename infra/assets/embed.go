package assets

import "embed"

// Files contains the stylesheet and browser script served under /static/.
//
//go:embed *.css *.js
var Files embed.FS
