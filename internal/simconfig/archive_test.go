package simconfig

import (
	"errors"
	"testing"
)

func TestArchiveThenLoadArchivedRoundTrips(t *testing.T) {
	cfg, err := Parse([]byte(validConfigYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	dir := t.TempDir()
	if err := Archive(dir, cfg); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	got, err := LoadArchived(dir)
	if err != nil {
		t.Fatalf("LoadArchived: %v", err)
	}
	if got.Network.NumNodes != cfg.Network.NumNodes {
		t.Errorf("NumNodes = %d, want %d", got.Network.NumNodes, cfg.Network.NumNodes)
	}
	if got.Mix.TemporalMix.MixType != cfg.Mix.TemporalMix.MixType {
		t.Errorf("MixType = %q, want %q", got.Mix.TemporalMix.MixType, cfg.Mix.TemporalMix.MixType)
	}
}

func TestLoadArchived_NoArchiveYieldsErrNoArchive(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadArchived(dir); !errors.Is(err, ErrNoArchive) {
		t.Fatalf("err = %v, want ErrNoArchive", err)
	}
}
