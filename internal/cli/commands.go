package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type usage struct {
	UsedBytes      int64 `json:"used_bytes"`
	QuotaBytes     int64 `json:"quota_bytes"`
	UploadsCount   int64 `json:"uploads_count"`
	DownloadsCount int64 `json:"downloads_count"`
}

type grant struct {
	FileID  string            `json:"file_id"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

func printUsage(u usage) {
	fmt.Printf("used %s of %s, %d uploads, %d downloads\n",
		humanize.Bytes(uint64(u.UsedBytes)), humanize.Bytes(uint64(u.QuotaBytes)),
		u.UploadsCount, u.DownloadsCount)
}

// tokenPath is where the session token from the last login lives.
func tokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".filevault", "token")
}

func savedToken() string {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func saveToken(tok string) error {
	path := tokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(tok), 0o600)
}

func guessMimeType(path string) string {
	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		return "application/octet-stream"
	}
	return mt
}

// NewRootCmd builds the filevault command tree.
func NewRootCmd() *cobra.Command {
	var serverURL string

	root := &cobra.Command{
		Use:           "filevault",
		Short:         "FileVault demo client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "server base URL")

	client := func() *Client { return NewClient(serverURL, savedToken()) }

	login := &cobra.Command{
		Use:   "login <identity>",
		Short: "Authenticate and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Token string `json:"token"`
				Usage usage  `json:"usage"`
			}
			c := NewClient(serverURL, "")
			if err := c.call(cmd.Context(), "POST", "/api/login",
				map[string]string{"identity": args[0]}, &res); err != nil {
				return err
			}
			if err := saveToken(res.Token); err != nil {
				return err
			}
			printUsage(res.Usage)
			return nil
		},
	}

	upload := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}

			c := client()
			var res struct {
				Grant grant `json:"grant"`
			}
			err = c.call(cmd.Context(), "POST", "/api/files", map[string]any{
				"mime_type":  guessMimeType(args[0]),
				"size_bytes": info.Size(),
			}, &res)
			if err != nil {
				return err
			}

			if err := c.uploadFile(cmd.Context(), res.Grant.URL, res.Grant.Headers, args[0]); err != nil {
				return err
			}

			var done struct {
				Usage usage `json:"usage"`
			}
			if err := c.call(cmd.Context(), "POST", "/api/files/"+res.Grant.FileID+"/complete", nil, &done); err != nil {
				return err
			}

			fmt.Printf("uploaded %s as %s\n", args[0], res.Grant.FileID)
			printUsage(done.Usage)
			return nil
		},
	}

	replace := &cobra.Command{
		Use:   "replace <file-id> <path>",
		Short: "Overwrite an existing file in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[1])
			if err != nil {
				return err
			}

			c := client()
			var res struct {
				Grant grant `json:"grant"`
			}
			err = c.call(cmd.Context(), "PUT", "/api/files/"+args[0], map[string]any{
				"mime_type":  guessMimeType(args[1]),
				"size_bytes": info.Size(),
			}, &res)
			if err != nil {
				return err
			}

			if err := c.uploadFile(cmd.Context(), res.Grant.URL, res.Grant.Headers, args[1]); err != nil {
				return err
			}

			var done struct {
				Usage usage `json:"usage"`
			}
			if err := c.call(cmd.Context(), "POST", "/api/files/"+args[0]+"/replace-complete", nil, &done); err != nil {
				return err
			}

			fmt.Printf("replaced %s\n", args[0])
			printUsage(done.Usage)
			return nil
		},
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Files []struct {
					ID        string    `json:"id"`
					SizeBytes int64     `json:"size_bytes"`
					MimeType  string    `json:"mime_type"`
					CreatedAt time.Time `json:"created_at"`
				} `json:"files"`
			}
			if err := client().call(cmd.Context(), "GET", "/api/files", nil, &res); err != nil {
				return err
			}
			for _, f := range res.Files {
				fmt.Printf("%s  %8s  %-24s  %s\n",
					f.ID, humanize.Bytes(uint64(f.SizeBytes)), f.MimeType,
					f.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <file-id> [dest]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client()
			var res struct {
				URL string `json:"url"`
			}
			if err := c.call(cmd.Context(), "GET", "/api/files/"+args[0]+"/url", nil, &res); err != nil {
				return err
			}

			dest := args[0]
			if len(args) == 2 {
				dest = args[1]
			}
			if err := c.downloadFile(cmd.Context(), res.URL, dest); err != nil {
				return err
			}
			fmt.Printf("saved %s\n", dest)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <file-id>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Usage usage `json:"usage"`
			}
			if err := client().call(cmd.Context(), "DELETE", "/api/files/"+args[0], nil, &res); err != nil {
				return err
			}
			printUsage(res.Usage)
			return nil
		},
	}

	url := &cobra.Command{
		Use:   "url <file-id>",
		Short: "Print a presigned download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				URL string `json:"url"`
			}
			if err := client().call(cmd.Context(), "GET", "/api/files/"+args[0]+"/url", nil, &res); err != nil {
				return err
			}
			fmt.Println(res.URL)
			return nil
		},
	}

	root.AddCommand(login, upload, replace, ls, get, url, rm)
	return root
}
