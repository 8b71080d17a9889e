package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/KaramelBytes/officeloom/internal/config"
	"github.com/KaramelBytes/officeloom/internal/sysprobe"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set officeloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *currentConfig()
		c.EmbedAPIKey = mask(c.EmbedAPIKey)
		b, err := yaml.Marshal(&c)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], strings.TrimSpace(args[1])
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		c := *cfg
		atoi := func() (int, error) {
			i, err := strconv.Atoi(strings.NewReplacer("_", "", ",", "").Replace(val))
			if err != nil {
				return 0, fmt.Errorf("invalid int for %s: %v", key, val)
			}
			return i, nil
		}
		var err error
		switch key {
		case "max_process_rows":
			if c.MaxProcessRows, err = atoi(); err != nil {
				return err
			}
		case "analysis_sample_max_rows":
			if c.AnalysisSampleMaxRows, err = atoi(); err != nil {
				return err
			}
		case "cleaned_export_max_rows":
			if c.CleanedExportMaxRows, err = atoi(); err != nil {
				return err
			}
		case "sheet_row_cap":
			if c.SheetRowCap, err = atoi(); err != nil {
				return err
			}
		case "keypoints_max":
			if c.KeypointsMax, err = atoi(); err != nil {
				return err
			}
		case "http_timeout_sec":
			if c.HTTPTimeoutSec, err = atoi(); err != nil {
				return err
			}
		case "cpu_target":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for cpu_target: %v", val)
			}
			if f < sysprobe.MinCPUTarget || f > sysprobe.MaxCPUTarget {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: cpu_target %v will be clamped to [%v, %v]\n", f, sysprobe.MinCPUTarget, sysprobe.MaxCPUTarget)
			}
			c.CPUTarget = val
		case "embed_model":
			c.EmbedModel = val
		case "embed_endpoint":
			c.EmbedEndpoint = val
		case "embed_api_key":
			c.EmbedAPIKey = val
		case "ollama_host":
			c.OllamaHost = val
		case "log_level":
			c.LogLevel = strings.ToLower(val)
		case "log_format":
			c.LogFormat = strings.ToLower(val)
		case "jobs_db":
			c.JobsDB = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&c, cfgFile); err != nil {
			return err
		}
		cfg = &c
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
