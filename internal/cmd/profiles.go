package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aircontroller/padbridge/internal/configpaths"
	"github.com/aircontroller/padbridge/profile"
)

// Profiles inspects the profile catalog the bridge would use.
type Profiles struct {
	List    ProfilesList    `cmd:"" default:"withargs" help:"List catalog profiles; the default is marked with *"`
	Resolve ProfilesResolve `cmd:"" help:"Print the profile id a requested id resolves to"`
}

// CatalogFlag selects the profile catalog file.
type CatalogFlag struct {
	Profiles string `help:"Profile catalog (json, yaml or toml)" type:"path" env:"AIR_CONTROLLER_PROFILES"`

	Out io.Writer `kong:"-"`
}

func (c *CatalogFlag) load() (*profile.Catalog, string, error) {
	catalog, source, err := profile.Discover(c.Profiles, configpaths.ProfileCandidatePaths())
	if err != nil {
		return nil, "", fmt.Errorf("load profiles: %w", err)
	}
	return catalog, source, nil
}

func (c *CatalogFlag) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

type ProfilesList struct {
	CatalogFlag `embed:""`
}

func (l *ProfilesList) Run() error {
	catalog, source, err := l.load()
	if err != nil {
		return err
	}
	w := l.out()
	fmt.Fprintf(w, "# %s\n", source)
	for _, id := range catalog.IDs() {
		p, _ := catalog.Get(id)
		marker := " "
		if id == catalog.DefaultID() {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s", marker, id)
		if p.Name != "" {
			line += "  " + p.Name
		}
		if p.Description != "" {
			line += " - " + p.Description
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

type ProfilesResolve struct {
	CatalogFlag `embed:""`

	ID string `arg:"" optional:"" help:"Requested profile id; empty resolves to the default"`
}

func (r *ProfilesResolve) Run() error {
	catalog, _, err := r.load()
	if err != nil {
		return err
	}
	id, err := catalog.Resolve(r.ID)
	if err != nil {
		return err
	}
	if requested := strings.TrimSpace(r.ID); requested != "" {
		if _, ok := catalog.Lookup(requested); !ok {
			fmt.Fprintf(r.out(), "%s (fallback for unknown %q)\n", id, requested)
			return nil
		}
	}
	fmt.Fprintln(r.out(), id)
	return nil
}
