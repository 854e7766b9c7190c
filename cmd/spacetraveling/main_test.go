package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd("1.2.3")
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, "spacetraveling 1.2.3\n", out.String())
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := newRootCmd("dev")
	for _, name := range []string{"serve", "build", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, sub.Name())
	}
}

func TestBuildCommandWritesSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"refs":[{"id":"master","ref":"M1","isMasterRef":true}]}`))
	})
	mux.HandleFunc("/api/v2/documents/search", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("q"), "my.posts.uid") {
			w.Write([]byte(`{"results":[{"uid":"first","type":"posts","data":{"title":"First","content":[]}}]}`))
			return
		}
		w.Write([]byte(`{"next_page":null,"results":[{"uid":"first","type":"posts","data":{"title":"First"}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "snapshot.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"database_path: "+dbPath+"\nprismic:\n  endpoint: "+srv.URL+"/api/v2\n"), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd("dev")
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"build", "--config", cfgPath, "--log-level", "error"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "snapshot: 1 listed, 1 posts saved\n", out.String())

	store, err := spacetraveling.NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()
	p, err := store.GetPost("first")
	require.NoError(t, err)
	require.Equal(t, "First", p.Title)
}

func TestBuildCommandConfigError(t *testing.T) {
	cmd := newRootCmd("dev")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"build", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, cmd.Execute())
}
