package main

import (
	"bytes"
	"context"
	"image/gif"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRun(t *testing.T) string {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	t.Setenv("BUBBLES_LOGSDIR", filepath.Join(dir, "logs"))
	return dir
}

func TestRun_WritesGIF(t *testing.T) {
	dir := setupRun(t)
	out := filepath.Join(dir, "cells.gif")
	trace := filepath.Join(dir, "cells.geojson")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--config", dir,
		"-w", "24", "-H", "16", "-f", "3", "-n", "4",
		"--seed", "7",
		"-o", out,
		"--trace", trace,
		"--storage", "memory",
		"--log-level", "error",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, g.Image, 3)
	assert.Equal(t, 0, g.LoopCount)
	assert.Equal(t, 24, g.Config.Width)
	assert.Equal(t, 16, g.Config.Height)

	assert.FileExists(t, trace)
	assert.Contains(t, stdout.String(), "[100%]")
	assert.Contains(t, stdout.String(), "3 frames")

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "bubbles.*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRun_SqliteCatalogInCleanDir(t *testing.T) {
	dir := setupRun(t)
	t.Chdir(dir)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--config", dir,
		"-w", "8", "-H", "8", "-f", "2", "-n", "2",
		"--seed", "1",
		"-o", filepath.Join(dir, "a.gif"),
		"--storage", "sqlite",
		"--log-level", "error",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.FileExists(t, filepath.Join(dir, "runs", "bubbles.db"))
}

func TestRun_SameSeedSameOutput(t *testing.T) {
	dir := setupRun(t)

	render := func(name string) []byte {
		viper.Reset()
		path := filepath.Join(dir, name)
		var stdout, stderr bytes.Buffer
		require.NoError(t, run(context.Background(), []string{
			"--config", dir, "-w", "20", "-H", "20", "-f", "2", "-n", "5",
			"--seed", "0x2a", "-o", path, "--log-level", "error",
		}, &stdout, &stderr))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, render("a.gif"), render("b.gif"))
}

func TestRun_InvalidCanvas(t *testing.T) {
	dir := setupRun(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--config", dir, "-w", "0"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "width")
}

func TestRun_UnknownVariant(t *testing.T) {
	dir := setupRun(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--config", dir, "-w", "8", "-H", "8", "-f", "1",
		"--variant", "spiral", "-o", filepath.Join(dir, "x.gif"),
	}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestRun_Canceled(t *testing.T) {
	dir := setupRun(t)
	out := filepath.Join(dir, "never.gif")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	err := run(ctx, []string{"--config", dir, "-w", "8", "-H", "8", "-f", "2", "-o", out, "--log-level", "error"}, &stdout, &stderr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
}

func TestRun_Version(t *testing.T) {
	t.Cleanup(viper.Reset)
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "bubbles "))
}

func TestRun_Help(t *testing.T) {
	t.Cleanup(viper.Reset)
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "--num-cells")
}
