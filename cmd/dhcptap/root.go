package main

import (
	"github.com/danmuck/dhcptap/internal/config"
	"github.com/danmuck/dhcptap/internal/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "dhcptap",
		Short: "Encode, decode and relay DHCPv6 transaction envelopes",
		Long: `dhcptap works with the tagged envelope that pairs a DHCPv6 request with its
response, the capturing server's name and both timestamps.

Envelopes can be decoded from hex or files, built from hex messages, published
to an MQTT topic, or watched live on that topic.`,
		Version:       Version + " (" + Commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logging.ConfigureRuntime()
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "dhcptap.toml", "path to the TOML config")

	cmd.AddCommand(
		newDecodeCmd(),
		newEncodeCmd(),
		newPublishCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (config.TapConfig, error) {
	return config.LoadTapConfig(o.configPath)
}
