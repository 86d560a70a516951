package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eugeniofciuvasile/ipcc/internal/cli"
	"github.com/eugeniofciuvasile/ipcc/internal/codec"
	"github.com/eugeniofciuvasile/ipcc/internal/device"
	"github.com/eugeniofciuvasile/ipcc/internal/session"
)

type pulledFile struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Local  string `json:"local,omitempty"`
	Bytes  int    `json:"bytes"`
	Error  string `json:"error,omitempty"`
}

type pullReport struct {
	Host     string       `json:"host"`
	Hostname string       `json:"hostname,omitempty"`
	Class    string       `json:"class"`
	Files    []pulledFile `json:"files"`
}

func (a *app) newPullCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch the managed files and write them under a directory",
		Long: `Fetch every managed file of the device and write each one under the
output directory at its remote path, e.g. ./out/etc/majestic.yaml.

Examples:
  ipcc pull --out ./camera
  ipcc pull --host 192.168.1.20 --class board --out ./board`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, target, err := a.connect(cmd)
			if err != nil {
				return err
			}
			report, _, err := orch.Sync(cmd.Context(), session.Request{
				Creds:  target.Creds,
				Class:  target.Class,
				Verify: a.opts.Verify,
			})
			if err != nil {
				return err
			}

			out := pullReport{Host: report.Creds.Address(), Hostname: report.Hostname, Class: report.Class.String()}
			failed := 0
			for _, res := range report.Files {
				f := pulledFile{Path: res.File.Path, Format: res.File.Format.String()}
				if res.Err == nil {
					f.Local, res.Err = writeLocal(outDir, res.File.Path, res.Content)
					f.Bytes = len(res.Content)
				}
				if res.Err != nil {
					f.Error = res.Err.Error()
					failed++
				}
				out.Files = append(out.Files, f)
			}

			if a.jsonOut {
				if err := writeJSON(cmd, out); err != nil {
					return err
				}
			} else {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
				fmt.Fprintln(w, "PATH\tLOCAL\tBYTES\tSTATUS")
				fmt.Fprintln(w, "----\t-----\t-----\t------")
				for _, f := range out.Files {
					status := "ok"
					if f.Error != "" {
						status = f.Error
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Path, f.Local, f.Bytes, status)
				}
				w.Flush()
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be pulled", failed, len(out.Files))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the files into")
	return cmd
}

// writeLocal stores content at dir joined with the remote path.
func writeLocal(dir, remote, content string) (string, error) {
	local := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(remote, "/")))
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", remote, err)
	}
	if err := os.WriteFile(local, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", local, err)
	}
	return local, nil
}

func (a *app) newPushCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "push [REMOTE] LOCAL",
		Short: "Upload a local file to the device",
		Long: `Upload LOCAL to REMOTE over SFTP, replacing the remote file.

With only LOCAL, the remote path is picked from the managed files of the
device. Structured managed files are checked before uploading unless
--force is given.

Examples:
  ipcc push /etc/majestic.yaml ./majestic.yaml
  ipcc push ./wfb.conf`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPath := args[len(args)-1]
			data, err := os.ReadFile(localPath)
			if err != nil {
				return fmt.Errorf("failed to read local file: %w", err)
			}

			orch, target, err := a.connect(cmd)
			if err != nil {
				return err
			}

			var remote string
			if len(args) == 2 {
				remote = args[0]
			} else {
				f, err := a.pickManaged(cmd, orch, target, "Upload "+filepath.Base(localPath)+" to")
				if err != nil {
					return err
				}
				remote = f.Path
			}

			if f, ok := managedFile(remote); ok && f.Format == codec.FormatStructured && !force {
				if _, err := codec.Decode(string(data), f.Format); err != nil {
					return fmt.Errorf("%s: %w (use --force to upload anyway)", localPath, err)
				}
			}

			if err := orch.UploadFile(cmd.Context(), target.Creds, remote, data); err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd, map[string]any{"path": remote, "bytes": len(data)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d bytes to %s\n", len(data), remote)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "upload structured files even when they do not parse")
	return cmd
}

func (a *app) newGetCmd() *cobra.Command {
	var keyPath string
	cmd := &cobra.Command{
		Use:   "get [REMOTE]",
		Short: "Print a remote file to stdout",
		Long: `Download REMOTE over SFTP and write it to stdout. Without REMOTE the
path is picked from the managed files of the device.

With --key only one value of a structured file is printed. Keys are joined
with dots and list items are addressed by index.

Examples:
  ipcc get /etc/majestic.yaml
  ipcc get /etc/majestic.yaml --key video0.fps`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, target, err := a.connect(cmd)
			if err != nil {
				return err
			}

			var remote string
			if len(args) == 1 {
				remote = args[0]
			} else {
				f, err := a.pickManaged(cmd, orch, target, "Download")
				if err != nil {
					return err
				}
				remote = f.Path
			}

			data, err := orch.DownloadFile(cmd.Context(), target.Creds, remote)
			if err != nil {
				return err
			}
			if keyPath != "" {
				data, err = extractKey(string(data), keyPath)
				if err != nil {
					return fmt.Errorf("%s: %w", remote, err)
				}
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "print only the value at this dotted key path")
	return cmd
}

// extractKey decodes raw as a structured file and renders the value at the
// dotted path. Scalars print as their text, anything else as a YAML
// fragment under its last key.
func extractKey(raw, keyPath string) ([]byte, error) {
	content, err := codec.Decode(raw, codec.FormatStructured)
	if err != nil {
		return nil, err
	}
	doc := content.(codec.Structured).Doc
	path := strings.Split(keyPath, ".")
	v, ok := doc.Get(path...)
	if !ok {
		return nil, fmt.Errorf("no value at %q", keyPath)
	}
	if s, ok := v.(codec.Scalar); ok {
		return []byte(s.Text + "\n"), nil
	}
	text, err := codec.Encode(codec.Structured{
		Doc: &codec.Mapping{Entries: []codec.Entry{{Key: path[len(path)-1], Value: v}}},
	})
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// pickManaged lets the user choose one of the device's managed files,
// probing the hostname when the class is not known.
func (a *app) pickManaged(cmd *cobra.Command, orch *session.Orchestrator, target cli.Target, title string) (device.File, error) {
	class := target.Class
	if class == device.Unknown {
		_, probed, err := orch.Probe(cmd.Context(), target.Creds)
		if err != nil {
			return device.File{}, err
		}
		class = probed
	}
	files := device.FileSet(class)
	if len(files) == 0 {
		return device.File{}, fmt.Errorf("%s: %w; pass a remote path", class.Label(), session.ErrNoManagedFiles)
	}
	return a.pick(title, files)
}

// managedFile finds path in any class's file set.
func managedFile(path string) (device.File, bool) {
	for _, class := range device.Classes() {
		for _, f := range device.FileSet(class) {
			if f.Path == path {
				return f, true
			}
		}
	}
	return device.File{}, false
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	return nil
}
