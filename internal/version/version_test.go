package version

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Version
	}{
		{"v1.2.3", Version{Major: 1, Minor: 2, Patch: 3}},
		{"1.2.3", Version{Major: 1, Minor: 2, Patch: 3}},
		{"1.0.0", Version{Major: 1, Minor: 0, Patch: 0}},
		{"v2.0.0-beta", Version{Major: 2, Minor: 0, Patch: 0, Prerelease: "beta"}},
		{"1.0.0-rc1", Version{Major: 1, Minor: 0, Patch: 0, Prerelease: "rc1"}},
		{"dev", Version{Prerelease: "dev"}},
		{"dev-abc1234", Version{Prerelease: "dev", Metadata: "abc1234"}},
		{"dev-abc1234-dirty", Version{Prerelease: "dev", Metadata: "abc1234-dirty"}},
		{"v0.1.0", Version{Major: 0, Minor: 1, Patch: 0}},
		{"garbage!", Version{Prerelease: "unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v := Parse(tt.input)
			if v != tt.expected {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, v, tt.expected)
			}
		})
	}
}

func TestVersionIsDev(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"dev", true},
		{"dev-abc1234", true},
		{"1.0.0", false},
		{"v1.2.3", false},
		{"1.0.0-beta", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v := Parse(tt.input)
			if v.IsDev() != tt.expected {
				t.Errorf("Parse(%q).IsDev() = %v, want %v", tt.input, v.IsDev(), tt.expected)
			}
		})
	}
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		v1       string
		v2       string
		expected int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.1.0", "1.0.0", 1},
		{"1.0.0", "1.1.0", -1},
		{"1.0.0", "1.0.0-beta", 1},
		{"1.0.0-beta", "1.0.0", -1},
		{"dev", "1.0.0", -1},
		{"1.0.0", "dev", 1},
		{"dev", "dev", 0},
		{"dev-abc", "dev-xyz", 0},
		{"v1.0.0", "1.0.0", 0},
		{"0.9.0", "1.0.0", -1},
	}

	for _, tt := range tests {
		t.Run(tt.v1+" vs "+tt.v2, func(t *testing.T) {
			result := Parse(tt.v1).Compare(Parse(tt.v2))
			if result != tt.expected {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.v1, tt.v2, result, tt.expected)
			}
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		current  string
		minimum  string
		expected bool
	}{
		{"1.0.1", "1.0.0", true},
		{"1.0.0", "1.0.0", true},
		{"1.0.0", "1.0.1", false},
		{"2.0.0", "1.9.9", true},
		{"0.9.0", "1.0.0", false},
		{"dev", "1.0.0", false},
		{"1.0.0", "dev", true},
	}

	for _, tt := range tests {
		t.Run(tt.current+" >= "+tt.minimum, func(t *testing.T) {
			result := Parse(tt.current).AtLeast(Parse(tt.minimum))
			if result != tt.expected {
				t.Errorf("AtLeast(%q, %q) = %v, want %v", tt.current, tt.minimum, result, tt.expected)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1.2.3", "1.2.3"},
		{"v1.2.3", "1.2.3"},
		{"1.0.0-beta", "1.0.0-beta"},
		{"dev", "dev"},
		{"dev-abc1234", "dev-abc1234"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Parse(tt.input).String(); got != tt.expected {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	info := Build()
	if info.Version != Current {
		t.Errorf("Build().Version = %q, want %q", info.Version, Current)
	}
}
