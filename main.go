package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"iq-spectrogram/render"
	"iq-spectrogram/spectrogram"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "http", "protocol to use (http or https)")
		port := serveCmd.String("p", "5000", "port to use")
		serveCmd.Parse(os.Args[2:])
		serve(*protocol, *port)

	case "render":
		defaults := spectrogram.ConfigFromEnv()
		renderCmd := flag.NewFlagSet("render", flag.ExitOnError)
		fs := renderCmd.Float64("fs", 0, "sample rate in Hz (default: SigMF sidecar, then SPEC_SAMPLE_RATE)")
		nfft := renderCmd.Int("nfft", defaults.FrameSize, "FFT frame size in samples")
		noverlap := renderCmd.Int("noverlap", defaults.Overlap, "samples shared by consecutive frames")
		scaling := renderCmd.String("scaling", defaults.Scaling.String(), "density, magnitude or power")
		out := renderCmd.String("o", "", "output png (one file) or directory (many files)")
		vertical := renderCmd.Bool("vertical", false, "put time on the vertical axis")
		invert := renderCmd.Bool("invert", false, "flip the frequency axis")
		cmap := renderCmd.String("cmap", "viridis", "colormap: viridis or gray")
		workers := renderCmd.Int("workers", 0, "files rendered concurrently (default: half the CPUs)")
		renderCmd.Parse(os.Args[2:])
		if renderCmd.NArg() < 1 {
			fmt.Println("usage: iq-spectrogram render [flags] <file_or_dir>")
			os.Exit(1)
		}

		cfg := defaults
		cfg.FrameSize, cfg.Overlap = *nfft, *noverlap
		if *fs > 0 {
			cfg.SampleRate = *fs
		}
		sc, err := spectrogram.ParseScaling(*scaling)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		cfg.Scaling = sc

		opts := render.DefaultOptions()
		if *vertical {
			opts.TimeAxis = render.TimeVertical
		}
		opts.InvertFrequency = *invert
		if opts.Colormap, err = render.ParseColormap(*cmap); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		renderPath(renderCmd.Arg(0), renderOptions{cfg: cfg, opts: opts, rateSet: *fs > 0, out: *out}, *workers)

	case "store":
		if len(os.Args) < 3 {
			fmt.Println("usage: iq-spectrogram store <file_or_dir>")
			os.Exit(1)
		}
		store(os.Args[2])

	case "list":
		list()

	case "fetch":
		if len(os.Args) < 4 {
			fmt.Println("usage: iq-spectrogram fetch <id> <out_file>")
			os.Exit(1)
		}
		fetch(os.Args[2], os.Args[3])

	case "erase":
		erase()

	case "generate":
		genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
		n := genCmd.Int("n", 10000, "number of samples")
		snr := genCmd.Float64("snr", 20, "QPSK signal to noise ratio in dB")
		tone := genCmd.Float64("tone", 0, "write a pure tone at this frequency in Hz instead of QPSK")
		fs := genCmd.Float64("fs", 1e6, "sample rate in Hz")
		seed := genCmd.Uint64("seed", 1, "noise seed")
		genCmd.Parse(os.Args[2:])
		if genCmd.NArg() < 1 {
			fmt.Println("usage: iq-spectrogram generate [-n 10000] [-snr 20] [-tone 0] [-fs 1e6] <out_file>")
			os.Exit(1)
		}
		generate(genCmd.Arg(0), generateOptions{n: *n, snrDB: *snr, toneHz: *tone, sampleRate: *fs, seed: *seed})

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: iq-spectrogram <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  serve    [-proto http] [-p 5000]           start the web server")
	fmt.Println("  render   [flags] <file_or_dir>             render cf32 recordings to png")
	fmt.Println("  store    <file_or_dir>                     save recordings in the blob store")
	fmt.Println("  list                                       list stored recordings")
	fmt.Println("  fetch    <id> <out_file>                   copy a stored recording to disk")
	fmt.Println("  erase                                      delete every stored recording")
	fmt.Println("  generate [-n] [-snr] [-tone] [-fs] <out>   write a synthetic cf32 recording")
}
