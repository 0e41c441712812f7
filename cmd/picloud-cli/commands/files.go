package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var uploadName string

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a local file to the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		localPath := args[0]

		f, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", localPath, err)
		}
		defer f.Close()

		name := uploadName
		if name == "" {
			name = filepath.Base(localPath)
		}

		result, err := newClient().Upload(cmd.Context(), name, f)
		if err != nil {
			return err
		}

		fmt.Printf("Uploaded %s (%d bytes)\n", result.Name, result.Size)
		return nil
	},
}

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Download a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		body, err := newClient().Download(cmd.Context(), name)
		if err != nil {
			return err
		}
		defer body.Close()

		outPath := downloadOutput
		if outPath == "" {
			outPath = filepath.Base(name)
		}

		if outPath == "-" {
			_, err := io.Copy(os.Stdout, body)
			return err
		}

		out, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outPath, err)
		}

		written, err := io.Copy(out, body)
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(outPath)
			return fmt.Errorf("download failed: %w", err)
		}

		fmt.Printf("Downloaded %s (%d bytes) to %s\n", name, written, outPath)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if err := newClient().Delete(cmd.Context(), name); err != nil {
			return err
		}

		fmt.Printf("Deleted %s\n", name)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newClient().List(cmd.Context())
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No files stored.")
			return nil
		}

		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "store under this name instead of the local base name")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output path ('-' for stdout; default: base name in current dir)")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
}
