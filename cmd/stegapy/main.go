// Command stegapy embeds, extracts and checks hidden data and watermarks
// in still images from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MearaY/stegapy"
	_ "github.com/MearaY/stegapy/plugins"
)

// version is set at build time via -ldflags "-X main.version=v1.2.3".
var version = "dev"

var (
	flagAlgorithm string
	flagPassword  string
	flagCompress  bool
	flagEncrypt   bool
	flagCipher    string
	flagBits      int
	flagLogLevel  string
)

func main() {
	root := &cobra.Command{
		Use:           "stegapy",
		Short:         "hide data and watermarks in still images",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			switch flagLogLevel {
			case "debug":
				level = slog.LevelDebug
			case "warn":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flagAlgorithm, "algorithm", "a", "LSB", "algorithm (LSB, RandomLSB, DWTDugad)")
	pf.StringVarP(&flagPassword, "password", "p", "", "password for encryption, permutation keying and signatures")
	pf.BoolVar(&flagCompress, "compress", true, "gzip the payload before embedding")
	pf.BoolVar(&flagEncrypt, "encrypt", false, "encrypt the payload before embedding")
	pf.StringVar(&flagCipher, "cipher", stegapy.CipherAES128, "encryption algorithm (AES128, AES256)")
	pf.IntVar(&flagBits, "bits", 1, "bit-planes used per color channel (1-8)")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(embedCmd(), extractCmd(), signCmd(), markCmd(), checkCmd(), diffCmd(), algorithmsCmd())

	if err := root.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newFacade() (*stegapy.Steganographer, error) {
	cfg := stegapy.DefaultConfig()
	cfg.UseCompression = flagCompress
	cfg.UseEncryption = flagEncrypt
	cfg.Password = flagPassword
	if err := cfg.Set(stegapy.OptEncryptionAlgorithm, flagCipher); err != nil {
		return nil, err
	}
	if err := cfg.Set(stegapy.OptMaxBitsUsedPerChannel, fmt.Sprint(flagBits)); err != nil {
		return nil, err
	}
	return stegapy.New(flagAlgorithm, cfg)
}

func embedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embed <payload> <cover> <stego>",
		Short: "hide a payload file inside a cover image",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newFacade()
			if err != nil {
				return err
			}
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cover, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			stego, err := s.EmbedData(payload, args[0], cover, args[1], args[2])
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[2], stego, 0644); err != nil {
				return err
			}
			slog.Info("payload embedded", "stego", args[2], "bytes", len(stego))
			return nil
		},
	}
}

func extractCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "extract <stego>",
		Short: "recover the hidden payload from a stego image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newFacade()
			if err != nil {
				return err
			}
			stego, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			name, payload, err := s.ExtractData(stego, args[0])
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = name
			}
			if outPath == "" {
				outPath = "payload.bin"
			}
			if err := os.WriteFile(outPath, payload, 0644); err != nil {
				return err
			}
			slog.Info("payload extracted", "embedded_name", name, "out", outPath, "bytes", len(payload))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default: the embedded filename)")
	return cmd
}

func signCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign <signature>",
		Short: "generate a watermark signature from the password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newFacade()
			if err != nil {
				return err
			}
			sig, err := s.GenerateSignature()
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], sig, 0644); err != nil {
				return err
			}
			slog.Info("signature written", "path", args[0], "bytes", len(sig))
			return nil
		},
	}
}

func markCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <signature> <cover> <stego>",
		Short: "cast a watermark signature into a cover image",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newFacade()
			if err != nil {
				return err
			}
			sig, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cover, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			stego, err := s.EmbedMark(sig, args[0], cover, args[1], args[2])
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[2], stego, 0644); err != nil {
				return err
			}
			slog.Info("watermark embedded", "stego", args[2], "bytes", len(stego))
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <stego> <signature>",
		Short: "score a stego image against the original signature",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newFacade()
			if err != nil {
				return err
			}
			stego, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sig, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			score, err := s.CheckMark(stego, args[0], sig)
			if err != nil {
				return err
			}
			verdict := "inconclusive"
			switch {
			case score >= s.Algorithm().HighWatermarkLevel():
				verdict = "present"
			case score <= s.Algorithm().LowWatermarkLevel():
				verdict = "absent"
			}
			fmt.Printf("correlation %.3f (%s)\n", score, verdict)
			return nil
		},
	}
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <stego> <cover> <out>",
		Short: "write an amplified difference image of stego vs cover",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newFacade()
			if err != nil {
				return err
			}
			stego, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cover, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			out, err := s.Diff(stego, args[0], cover, args[1], args[2])
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[2], out, 0644); err != nil {
				return err
			}
			slog.Info("diff written", "path", args[2])
			return nil
		},
	}
}

func algorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "list registered algorithms",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range stegapy.Algorithms() {
				s, err := stegapy.New(name, stegapy.DefaultConfig())
				if err != nil {
					return err
				}
				fmt.Printf("%-10s %v  %s\n", name, s.Algorithm().Purposes(), s.Algorithm().Description())
			}
			return nil
		},
	}
}
