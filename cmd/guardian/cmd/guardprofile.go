package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcp-guardian/guardian/internal/guardianconfig"
	"github.com/mcp-guardian/guardian/internal/guardprofile"
)

// guardProfileCmd groups the catalog convenience subcommands: list,
// import, export, extended with get/set/delete since this CLI has no
// separate admin surface to provide them.
var guardProfileCmd = &cobra.Command{
	Use:   "guard-profile",
	Short: "Manage the on-disk guard-profile catalog",
}

func init() {
	guardProfileCmd.AddCommand(guardProfileGetCmd, guardProfileSetCmd, guardProfileImportCmd, guardProfileExportCmd, guardProfileDeleteCmd, guardProfileListCmd)
	rootCmd.AddCommand(guardProfileCmd)
}

func openCatalog() (*guardprofile.Catalog, error) {
	cfg, err := guardianconfig.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return guardprofile.NewCatalog(cfg.Catalogs.GuardProfilesDir), nil
}

func splitRef(ref string) (namespace, name string, err error) {
	namespace, name, ok := strings.Cut(ref, ".")
	if !ok || namespace == "" || name == "" {
		return "", "", fmt.Errorf("reference %q must be \"namespace.profile_name\"", ref)
	}
	return namespace, name, nil
}

var guardProfileGetCmd = &cobra.Command{
	Use:   "get <namespace.profile_name>",
	Short: "Print a guard profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		namespace, name, err := splitRef(args[0])
		if err != nil {
			return err
		}
		catalog, err := openCatalog()
		if err != nil {
			return err
		}
		doc, found, err := catalog.Load(namespace, name)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("guard profile %q not found", args[0])
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var guardProfileSetCmd = &cobra.Command{
	Use:   "set <namespace.profile_name> <json-file>",
	Short: "Save a guard profile document from a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		namespace, name, err := splitRef(args[0])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		var doc guardprofile.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", args[1], err)
		}
		catalog, err := openCatalog()
		if err != nil {
			return err
		}
		return catalog.Save(namespace, name, doc)
	},
}

var guardProfileImportCmd = &cobra.Command{
	Use:   "import <namespace.profile_name> <json-file>",
	Short: "Alias for set",
	Args:  cobra.ExactArgs(2),
	RunE:  guardProfileSetCmd.RunE,
}

var guardProfileExportCmd = &cobra.Command{
	Use:   "export <namespace.profile_name> <json-file>",
	Short: "Write a guard profile document to a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		namespace, name, err := splitRef(args[0])
		if err != nil {
			return err
		}
		catalog, err := openCatalog()
		if err != nil {
			return err
		}
		doc, found, err := catalog.Load(namespace, name)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("guard profile %q not found", args[0])
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(args[1], data, 0o600)
	},
}

var guardProfileDeleteCmd = &cobra.Command{
	Use:   "delete <namespace.profile_name>",
	Short: "Delete a guard profile from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		namespace, name, err := splitRef(args[0])
		if err != nil {
			return err
		}
		catalog, err := openCatalog()
		if err != nil {
			return err
		}
		return catalog.Delete(namespace, name)
	},
}

var guardProfileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every guard profile in the catalog (built-ins and on-disk)",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		catalog, err := openCatalog()
		if err != nil {
			return err
		}
		docs, err := catalog.List()
		if err != nil {
			return err
		}
		for _, d := range docs {
			fmt.Printf("%s.%s\n", d.Namespace, d.Name)
		}
		return nil
	},
}
