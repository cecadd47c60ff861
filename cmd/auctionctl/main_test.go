package main

import (
	"testing"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0.001", "1000000000000000", false},
		{"1", "1000000000000000000", false},
		{" 0.0105 ", "10500000000000000", false},
		{"0", "0", false},
		{"0.0000000000000000001", "", true},
		{"-1", "", true},
		{"one", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseEther(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseEther(%q) = %s, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEther(%q): %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("parseEther(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := (&app{}).rootCommand()

	for _, name := range []string{
		"bid", "settle", "start-genesis", "begin-after-rest",
		"set-auction-duration", "set-rest-duration", "set-payout", "state", "phase",
	} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s not registered", name)
		}
	}

	bid, _, _ := root.Find([]string{"bid"})
	if bid.Flags().Lookup("force") == nil {
		t.Error("bid has no --force flag")
	}
}
