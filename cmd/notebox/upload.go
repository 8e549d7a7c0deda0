package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"notebox/internal/app"
	"notebox/internal/nb"
	"notebox/internal/preview"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// showProgress renders upload progress on stderr until the returned func
// is called.
func showProgress(a *app.NBApp) (stop func()) {
	ch, unwatch := a.WatchUpload()
	done := make(chan struct{})

	go func() {
		defer close(done)
		var bar *progressbar.ProgressBar
		last := 0
		for st := range ch {
			if st.State != nb.StateLocalTransfer {
				continue
			}
			if bar == nil {
				bar = progressbar.NewOptions(100,
					progressbar.OptionSetDescription(st.FileName),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetWidth(40),
					progressbar.OptionThrottle(65*time.Millisecond),
					progressbar.OptionShowCount(),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprint(os.Stderr, "\n")
					}),
					progressbar.OptionSetRenderBlankState(true),
				)
			}
			if st.Progress > last {
				last = st.Progress
				_ = bar.Set(last)
			}
		}
		if bar != nil && last < 100 {
			fmt.Fprintln(os.Stderr)
		}
	}()

	return func() {
		unwatch()
		<-done
	}
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload FOLDER",
	Short: "Add a file or a link to a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req app.UploadRequest
		req.Folder = args[0]
		req.Name, _ = cmd.Flags().GetString("name")
		req.FilePath, _ = cmd.Flags().GetString("file")
		req.Link, _ = cmd.Flags().GetString("link")
		req.Description, _ = cmd.Flags().GetString("desc")
		req.UploaderName, _ = cmd.Flags().GetString("by")

		a, err := newApp(cmd, "Upload")
		if err != nil {
			return err
		}
		defer a.Close()

		stop := showProgress(a)
		item, err := a.Upload(cmd.Context(), req)
		stop()
		if errors.Is(err, nb.ErrRecoveryPending) {
			return fmt.Errorf("%w: run 'notebox recover' first", err)
		}
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		fmt.Printf("Added %q to %s (%s)\n", item.Name, item.Folder, item.Kind)
		fmt.Printf("Link: %s\n", item.Link)
		return nil
	},
}

// recover command
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Resume or discard an interrupted upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		discard, _ := cmd.Flags().GetBool("discard")

		a, err := newApp(cmd, "Recover")
		if err != nil {
			return err
		}
		defer a.Close()

		pending := a.PendingUpload()
		if pending == nil {
			fmt.Println("No interrupted upload.")
			return nil
		}

		switch {
		case discard:
			if err := a.Discard(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Discarded %q\n", pending.FileName)
		case path != "":
			stop := showProgress(a)
			item, err := a.Resume(cmd.Context(), path)
			stop()
			if err != nil {
				return fmt.Errorf("resume failed: %w", err)
			}
			fmt.Printf("Added %q to %s (%s)\n", item.Name, item.Folder, item.Kind)
			fmt.Printf("Link: %s\n", item.Link)
		default:
			fmt.Printf("Interrupted upload from %s:\n", pending.StartedAt().Format("2006-01-02 15:04:05"))
			fmt.Printf("  Name:     %s\n", pending.FileName)
			fmt.Printf("  Folder:   %s\n", pending.Folder)
			fmt.Printf("  Uploader: %s\n", pending.UploaderName)
			if pending.Description != "" {
				fmt.Printf("  Desc:     %s\n", pending.Description)
			}
			fmt.Println("Re-select the file with --file PATH to resume, or pass --discard.")
		}
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the catalog whenever it changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		unsubscribe := a.Subscribe(func(snap nb.Snapshot) {
			fmt.Printf("[%s] %d folder(s), %d item(s)\n", time.Now().Format("15:04:05"), len(snap.Folders), len(snap.Items))
			for _, f := range snap.Folders {
				fmt.Printf("  %s: %d item(s)\n", f.Name, len(nb.FilterItems(snap, f.Name, "")))
			}
		})
		defer unsubscribe()

		<-cmd.Context().Done()
		return nil
	},
}

// preview command
var previewCmd = &cobra.Command{
	Use:   "preview URL",
	Short: "Show the thumbnail and embed URLs for a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := preview.Resolve(args[0])
		if p == nil {
			fmt.Println("No preview available.")
			return nil
		}
		fmt.Printf("Kind:  %s\n", p.Kind)
		fmt.Printf("Image: %s\n", p.Image)
		if p.Embed != "" {
			fmt.Printf("Embed: %s\n", p.Embed)
		}
		return nil
	},
}

// drive command
var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Run the upload relay",
}

var driveServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the getUrl/finalize endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ds, err := app.NewDriveServer(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Drive relay listening on %s\n", ds.Addr())
		return ds.Serve(cmd.Context())
	},
}

var driveKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the key pair for encrypting hosted files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		recipient, err := app.GenerateDriveKey(cfg)
		if err != nil {
			return fmt.Errorf("generating drive key: %w", err)
		}

		fmt.Printf("Identity written to %s\n", cfg.Drive.Encryption.IdentityPath)
		fmt.Printf("Public key: %s\n", recipient)
		fmt.Println(`Set [drive.encryption] type = "age" to encrypt new uploads.`)
		return nil
	},
}
