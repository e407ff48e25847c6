// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package config implements toolkit-wide options that are not specific
// to any one file format: name-pool encoding, the strictness of
// alignment/bounds checks, a tool-id stamp, and the default breakpoint
// policy. Options are loaded from TOML via BurntSushi/toml, the same
// library ethereum-go-ethereum's config loader family vendors. No codec
// package reads Options; they only hold the loaded values.
package config

import (
	"github.com/BurntSushi/toml"

	"github.com/gviegas/bmdtool/namepool"
)

// Options carries every toolkit-wide knob. The zero value is not
// necessarily meaningful on its own; use Default for a ready-to-use
// instance.
type Options struct {
	// NamePoolEncoding names namepool.Bare or namepool.NPrefixed. The
	// codecs do not read it: each call to namepool.Pool.Pack takes its
	// encoding as an argument.
	NamePoolEncoding namepool.Encoding

	// StrictChecks records whether alignment and bounds violations
	// are to panic (true) or only be reported through a
	// diagnostics.Sink (false). No package of this toolkit reads it.
	StrictChecks bool

	// ToolTag is a 4-byte tool identifier. The J3D writer does not
	// read it: it writes the 16-byte tool header (the bytes following
	// the section count) as zeros.
	ToolTag [4]byte

	// ToolDate is the tool build-date stamp accompanying ToolTag.
	ToolDate [4]byte

	// BreakOnWarn records whether a diagnostics.Sink is to treat a
	// warning as a breakpoint trap by default. The diagnostics package
	// does not read it.
	BreakOnWarn bool
}

// Default returns the zero-config options used when no TOML file is
// supplied: bare name encoding, non-strict (diagnose-only) checks, a
// placeholder tool stamp, and no implicit breakpoints.
func Default() Options {
	return Options{
		NamePoolEncoding: namepool.Bare,
		StrictChecks:     false,
		ToolTag:          [4]byte{'S', 'T', 'U', 'D'},
		ToolDate:         [4]byte{'2', '0', '2', '6'},
		BreakOnWarn:      false,
	}
}

// tomlOptions mirrors Options with string/primitive fields TOML can
// decode directly; Load translates between the two.
type tomlOptions struct {
	NamePoolEncoding string `toml:"name_pool_encoding"`
	StrictChecks     bool   `toml:"strict_checks"`
	ToolTag          string `toml:"tool_tag"`
	ToolDate         string `toml:"tool_date"`
	BreakOnWarn      bool   `toml:"break_on_warn"`
}

// Load reads Options from a TOML file at path, starting from Default
// and overriding only the fields present in the file.
func Load(path string) (Options, error) {
	opt := Default()

	t := tomlOptions{
		NamePoolEncoding: "bare",
		StrictChecks:     opt.StrictChecks,
		ToolTag:          string(opt.ToolTag[:]),
		ToolDate:         string(opt.ToolDate[:]),
		BreakOnWarn:      opt.BreakOnWarn,
	}
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return Options{}, err
	}

	if t.NamePoolEncoding == "n_prefixed" {
		opt.NamePoolEncoding = namepool.NPrefixed
	} else {
		opt.NamePoolEncoding = namepool.Bare
	}
	opt.StrictChecks = t.StrictChecks
	opt.BreakOnWarn = t.BreakOnWarn
	copyTag(&opt.ToolTag, t.ToolTag)
	copyTag(&opt.ToolDate, t.ToolDate)

	return opt, nil
}

// copyTag copies up to 4 bytes of s into dst, space-padding any
// remainder so every stamp is always exactly 4 bytes wide.
func copyTag(dst *[4]byte, s string) {
	for i := range dst {
		if i < len(s) {
			dst[i] = s[i]
		} else {
			dst[i] = ' '
		}
	}
}
