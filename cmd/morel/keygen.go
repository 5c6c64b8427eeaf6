package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/morel-ai/morel/internal/auth"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an admin key and its bcrypt hash",
	Long:  "Generates a new admin key. Put the hash in the config under auth.admin_key_hash and hand the plaintext key to the operator; the plaintext is never stored.",
	RunE:  runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	key, hash, err := auth.GenerateAdminKey()
	if err != nil {
		return fmt.Errorf("generating admin key: %w", err)
	}

	fmt.Printf("Admin key:  %s\n", key)
	fmt.Printf("Key hash:   %s\n", hash)
	fmt.Printf("\nAdd to configs/morel.yaml:\n")
	fmt.Printf("  auth:\n")
	fmt.Printf("    admin_key_hash: \"%s\"\n", hash)
	return nil
}
