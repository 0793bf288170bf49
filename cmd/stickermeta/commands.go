package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/deven96/stickermeta/metadata"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type embedOptions struct {
	output     string
	id         string
	pack       string
	publisher  string
	emojis     []string
	android    string
	ios        string
	firstParty bool
}

func newEmbedCommand(ctx *commandContext) *cobra.Command {
	var opts embedOptions
	cmd := &cobra.Command{
		Use:   "embed <sticker.webp>",
		Short: "Write sticker pack metadata, replacing any already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record := metadata.Metadata{}
			if ctx.configPath != "" {
				cfg, err := ctx.config()
				if err != nil {
					return err
				}
				record = cfg.StickerDefaults()
			}
			applyEmbedFlags(cmd, &record, opts)

			dst := opts.output
			if dst == "" {
				dst = args[0]
			}
			if err := metadata.EmbedFile(args[0], dst, record); err != nil {
				return err
			}
			log.Infof("wrote sticker metadata to %s", dst)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write to this file instead of in place")
	cmd.Flags().StringVar(&opts.id, "id", "", "Sticker pack id (random when empty)")
	cmd.Flags().StringVar(&opts.pack, "pack", "", "Sticker pack name")
	cmd.Flags().StringVar(&opts.publisher, "publisher", "", "Sticker pack publisher")
	cmd.Flags().StringSliceVar(&opts.emojis, "emoji", nil, "Emoji describing the sticker (repeatable)")
	cmd.Flags().StringVar(&opts.android, "android-link", "", "Android app store link")
	cmd.Flags().StringVar(&opts.ios, "ios-link", "", "iOS app store link")
	cmd.Flags().BoolVar(&opts.firstParty, "first-party", false, "Mark the sticker as first party")
	return cmd
}

// applyEmbedFlags copies the flags the user actually set onto record
func applyEmbedFlags(cmd *cobra.Command, record *metadata.Metadata, opts embedOptions) {
	flags := cmd.Flags()
	if flags.Changed("id") {
		record.StickerPackID = opts.id
	}
	if flags.Changed("pack") {
		record.StickerPackName = opts.pack
	}
	if flags.Changed("publisher") {
		record.StickerPackPublisher = opts.publisher
	}
	if flags.Changed("emoji") {
		record.Emojis = opts.emojis
	}
	if flags.Changed("android-link") {
		link := opts.android
		record.AndroidAppStoreLink = &link
	}
	if flags.Changed("ios-link") {
		link := opts.ios
		record.IOSAppStoreLink = &link
	}
	if flags.Changed("first-party") {
		firstParty := opts.firstParty
		record.IsFirstPartySticker = &firstParty
	}
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "extract <sticker.webp>",
		Aliases: []string{"show"},
		Short:   "Print the sticker pack metadata of a WebP file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := metadata.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON || !isTerminal(out) {
				return writeJSON(out, m)
			}
			fmt.Fprintln(out, renderMetadata(m))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON even on a terminal")
	return cmd
}

func newStripCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "strip <sticker.webp>",
		Short: "Remove sticker pack metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if !metadata.HasMetadata(data) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no sticker metadata\n", args[0])
				return nil
			}
			dst := output
			if dst == "" {
				dst = args[0]
			}
			stripped, err := metadata.Remove(data)
			if err != nil {
				return err
			}
			return os.WriteFile(dst, stripped, 0600)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of in place")
	return cmd
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type jsonMetadata struct {
	StickerPackID        string   `json:"sticker-pack-id"`
	StickerPackName      string   `json:"sticker-pack-name"`
	StickerPackPublisher string   `json:"sticker-pack-publisher"`
	Emojis               []string `json:"emojis,omitempty"`
	AndroidAppStoreLink  *string  `json:"android-app-store-link,omitempty"`
	IOSAppStoreLink      *string  `json:"ios-app-store-link,omitempty"`
	IsFirstPartySticker  *bool    `json:"is-first-party-sticker,omitempty"`
}

func writeJSON(w io.Writer, m metadata.Metadata) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(jsonMetadata(m))
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func renderMetadata(m metadata.Metadata) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Field", "Value"})
	emojis := "-"
	if m.Emojis != nil {
		emojis = fmt.Sprint(m.Emojis)
	}
	firstParty := "-"
	if m.IsFirstPartySticker != nil {
		firstParty = strconv.FormatBool(*m.IsFirstPartySticker)
	}
	tw.AppendRows([]table.Row{
		{"Pack ID", m.StickerPackID},
		{"Pack name", m.StickerPackName},
		{"Publisher", m.StickerPackPublisher},
		{"Emojis", emojis},
		{"Android link", optional(m.AndroidAppStoreLink)},
		{"iOS link", optional(m.IOSAppStoreLink)},
		{"First party", firstParty},
	})
	return tw.Render()
}
