package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"phsen/internal/adapters/export"
	"phsen/internal/blob"
	"phsen/internal/config"
)

var runActions = map[string]int{"list": 0, "get": 1, "delete": 1, "artifact": 1}

func runsCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("phsen runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath string
		info       bool
		obs        obsFlags
	)
	fs.StringVar(&configPath, "config", "", "path to a YAML config file")
	fs.BoolVar(&info, "info", false, "artifact: print the stored metadata instead of the content")
	obs.register(fs)
	fs.Usage = func() {
		_, _ = fmt.Fprintln(fs.Output(), "usage: phsen runs [flags] list | get <id> | delete <id> | artifact <key>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}
	action, operands := rest[0], rest[1:]
	want, ok := runActions[action]
	if !ok || len(operands) != want {
		_, _ = fmt.Fprintf(stderr, "phsen runs: unknown action or wrong arguments: %v\n", rest)
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "phsen: config: %v\n", err)
		return exitUsage
	}
	a, code, err := newApp(cfg, obs, stdout, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "phsen: %v\n", err)
		return code
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch action {
	case "list":
		err = listRuns(ctx, a, stdout)
	case "get":
		err = showRun(ctx, a, operands[0], stdout)
	case "delete":
		err = deleteRun(ctx, a, operands[0], stdout)
	case "artifact":
		err = showArtifact(ctx, a, operands[0], info, stdout)
	}
	code = exitOK
	if err != nil {
		code = exitRuntime
	}
	return a.finish(code, err, stderr)
}

func listRuns(ctx context.Context, a *app, w io.Writer) error {
	runs, err := a.svc.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs stored")
		return err
	}
	data := pterm.TableData{{"Run", "Label", "Created", "Succeeded", "Failed"}}
	for _, run := range runs {
		succeeded, failed := run.Counts()
		data = append(data, []string{
			run.ID,
			run.Label,
			run.CreatedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(succeeded),
			strconv.Itoa(failed),
		})
	}
	return printTable(w, data)
}

func showRun(ctx context.Context, a *app, id string, w io.Writer) error {
	run, err := a.svc.GetRun(ctx, id)
	if err != nil {
		return err
	}
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	if err := renderRun(w, run); err != nil {
		return err
	}
	infos, err := store.List(ctx, export.ArtifactPrefix(id))
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "no artifacts")
		return err
	}
	data := pterm.TableData{{"Artifact", "Content type", "Bytes"}}
	for _, info := range infos {
		data = append(data, []string{info.Key, info.ContentType, strconv.FormatInt(info.Size, 10)})
	}
	return printTable(w, data)
}

func deleteRun(ctx context.Context, a *app, id string, w io.Writer) error {
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	if err := a.svc.DeleteRun(ctx, id); err != nil {
		return err
	}
	infos, err := store.List(ctx, export.ArtifactPrefix(id))
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}
	removed := 0
	for _, info := range infos {
		ok, err := store.Delete(ctx, info.Key)
		if err != nil {
			return fmt.Errorf("delete artifact %s: %w", info.Key, err)
		}
		if ok {
			removed++
		}
	}
	_, err = fmt.Fprintf(w, "deleted run %s and %d artifacts\n", id, removed)
	return err
}

func showArtifact(ctx context.Context, a *app, key string, info bool, w io.Writer) error {
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	if info {
		meta, err := store.Head(ctx, key)
		if err != nil {
			return artifactError(key, err)
		}
		if _, err := fmt.Fprintf(w, "key: %s\ncontent-type: %s\nbytes: %d\nmodified: %s\n",
			meta.Key, meta.ContentType, meta.Size, meta.LastModified.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		names := make([]string, 0, len(meta.Metadata))
		for k := range meta.Metadata {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if _, err := fmt.Fprintf(w, "%s: %s\n", k, meta.Metadata[k]); err != nil {
				return err
			}
		}
		return nil
	}
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return artifactError(key, err)
	}
	defer func() { _ = rc.Close() }()
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("read artifact %s: %w", key, err)
	}
	return nil
}

func artifactError(key string, err error) error {
	if errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("artifact %s not found", key)
	}
	return fmt.Errorf("artifact %s: %w", key, err)
}

func printTable(w io.Writer, data pterm.TableData) error {
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, err = fmt.Fprintln(w, table)
	return err
}
