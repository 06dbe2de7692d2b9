// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package lang

import "testing"

func TestAlt(t *testing.T) {
	defer func(s, d string) { env, Default = s, d }(env, Default)
	alt := Alt{
		EnUS: "bus",
		FrFR: "bus de données",
	}
	env = FrFR
	if got, want := alt.String(), "bus de données"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
	env = "de_DE.UTF-8"
	if got, want := alt.String(), "bus"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
	Default = FrFR
	if got, want := alt.String(), "bus de données"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
