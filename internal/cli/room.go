package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/imposter/internal/model"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room inspection commands",
	}

	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomQRCmd())

	return cmd
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Get room details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := model.ParseRoomCode(args[0])
			if err != nil {
				return err
			}

			var result Room

			if err := client.Get(fmt.Sprintf("/api/v1/rooms/%s", code), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomQRCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "qr <code>",
		Short: "Save a QR code linking to the room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := model.ParseRoomCode(args[0])
			if err != nil {
				return err
			}

			png, err := client.Fetch(fmt.Sprintf("/api/v1/rooms/%s/qr", code), "image/png")
			if err != nil {
				return err
			}

			if file == "" {
				file = fmt.Sprintf("room-%s.png", code)
			}
			if err := os.WriteFile(file, png, 0o644); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Wrote %s", file))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (default: room-<code>.png)")

	return cmd
}
