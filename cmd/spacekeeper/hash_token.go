package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vocespace/spacekeeper/internal/pkg/secrets"
)

var tokenPepper string

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Print the argon2id hash to put in root.api_token_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		hash, err := secrets.HashToken(args[0], tokenPepper)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, hash)
		return err
	},
}

func init() {
	hashTokenCmd.Flags().StringVar(&tokenPepper, "pepper", "", "must match root.token_pepper")
	rootCmd.AddCommand(hashTokenCmd)
}
