package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var readJSON bool

var readCmd = &cobra.Command{
	Use:   "read <server> <uri>",
	Short: "Read a resource from a server",
	Long: `Read a resource by URI and print its contents.

Text contents print verbatim; binary contents print a size summary instead
of the base64 payload (use --json to get the payload).

Example:
  mcpdial read files file:///etc/hosts`,
	Args: cobra.ExactArgs(2),
	RunE: runRead,
}

func init() {
	readCmd.Flags().BoolVar(&readJSON, "json", false, "Output the raw contents as JSON")

	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	server, uri := args[0], args[1]

	sess, err := connectTo(cmd.Context(), server, 0)
	if err != nil {
		return err
	}
	defer sess.Close()

	contents, err := sess.ReadResource(cmd.Context(), uri)
	if err != nil {
		return err
	}

	if readJSON {
		data, err := json.MarshalIndent(contents, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal contents: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	newRenderer(os.Stdout).ResourceContents(contents)
	return nil
}
