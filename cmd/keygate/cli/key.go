package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jordancooper-dev/keygate/models"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, inspect, and revoke the API keys that authenticate against the HTTP API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyInfoCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		name      string
		clientID  string
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key for a client. The plaintext key is shown once and cannot be retrieved again.",
		Example: `  keygate key create --name "CI pipeline" --client-id acme
  keygate key create --name deploy --client-id acme --expires-in 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(name, clientID, expiresIn)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Human-readable name for the key (required)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Client the key belongs to (required)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Lifetime of the key, e.g. 720h (default: never expires)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("client-id")

	return cmd
}

func runKeyCreate(name, clientID string, expiresIn time.Duration) error {
	ctx := context.Background()

	application, _, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	var expiresAt *time.Time
	if expiresIn > 0 {
		t := time.Now().UTC().Add(expiresIn)
		expiresAt = &t
	}

	issued, err := application.CreateKey(ctx, name, clientID, expiresAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:     %s\n", issued.Key)
	fmt.Printf("  Prefix:  %s\n", issued.KeyPrefix)
	fmt.Printf("  Name:    %s\n", issued.Name)
	fmt.Printf("  Client:  %s\n", issued.ClientID)
	if issued.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", issued.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of keys to show")

	return cmd
}

func runKeyList(jsonOutput bool, limit int) error {
	ctx := context.Background()

	application, _, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	keys, total, err := application.ListKeys(ctx, 0, limit)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys. Use 'keygate key create' to create one.")
		return nil
	}

	fmt.Printf("%-14s %-24s %-16s %-8s %-20s\n", "PREFIX", "NAME", "CLIENT", "ACTIVE", "LAST USED")
	fmt.Printf("%-14s %-24s %-16s %-8s %-20s\n", "------", "----", "------", "------", "---------")
	for _, k := range keys {
		active := "yes"
		if !k.IsActive {
			active = "no"
		}
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-14s %-24s %-16s %-8s %-20s\n", k.KeyPrefix, k.Name, k.ClientID, active, lastUsed)
	}

	if int64(len(keys)) < total {
		fmt.Printf("\nShowing %d of %d keys.\n", len(keys), total)
	}
	return nil
}

// ---------- key info ----------

func newKeyInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <prefix|id>",
		Short: "Show one API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyInfo(args[0])
		},
	}
}

func runKeyInfo(ref string) error {
	ctx := context.Background()

	application, _, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	key, err := application.ResolveKey(ctx, ref)
	if err != nil {
		return err
	}

	printKey(key)
	return nil
}

func printKey(k *models.APIKey) {
	fmt.Printf("  ID:      %s\n", k.ID)
	fmt.Printf("  Prefix:  %s\n", k.KeyPrefix)
	fmt.Printf("  Name:    %s\n", k.Name)
	fmt.Printf("  Client:  %s\n", k.ClientID)
	fmt.Printf("  Active:  %t\n", k.IsActive)
	fmt.Printf("  Created: %s\n", k.CreatedAt.Format(time.RFC3339))
	if k.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", k.ExpiresAt.Format(time.RFC3339))
	}
	if k.LastUsedAt != nil {
		fmt.Printf("  Used:    %s\n", k.LastUsedAt.Format(time.RFC3339))
	}
	if k.RevokedAt != nil {
		fmt.Printf("  Revoked: %s\n", k.RevokedAt.Format(time.RFC3339))
	}
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <prefix|id>",
		Short: "Revoke an API key",
		Long:  "Deactivate an API key, preventing any further authenticated requests using that key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0])
		},
	}

	return cmd
}

func runKeyRevoke(ref string) error {
	ctx := context.Background()

	application, _, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	key, err := application.ResolveKey(ctx, ref)
	if err != nil {
		return err
	}

	revoked, err := application.RevokeKey(ctx, key.ID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if !revoked {
		return fmt.Errorf("no API key found for %q", ref)
	}

	fmt.Printf("Revoked API key %s (%s)\n", key.KeyPrefix, key.Name)
	return nil
}
