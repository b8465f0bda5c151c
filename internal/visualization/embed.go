package visualization

import "embed"

// templates holds the page templates used by RenderHTML and RenderRunHTML.
//
//go:embed templates/*
var templates embed.FS
