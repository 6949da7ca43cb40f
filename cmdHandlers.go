package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"iq-spectrogram/core"
	"iq-spectrogram/db"
	"iq-spectrogram/iq"
	"iq-spectrogram/render"
	"iq-spectrogram/spectrogram"
	"iq-spectrogram/utils"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func serve(protocol, port string) {
	protocol = strings.ToLower(protocol)

	store, err := db.NewDBClient()
	if err != nil {
		log.Fatalf("error creating DB client: %v", err)
	}
	defer store.Close()

	srv := newServer(store, spectrogram.ConfigFromEnv(), render.DefaultOptions())
	addr := ":" + port

	log.Printf("starting server on port %s (%s)\n", port, protocol)
	switch protocol {
	case "https":
		certFile := utils.GetEnv("CERT_FILE", "cert.pem")
		keyFile := utils.GetEnv("KEY_FILE", "key.pem")
		err = http.ListenAndServeTLS(addr, certFile, keyFile, srv.routes())
	default:
		err = http.ListenAndServe(addr, srv.routes())
	}
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type ctxKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)

		// skip noisy static file logs
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/upload" {
			log.Printf("[http] %s %s %s -> %d (%s)", id, r.Method, r.URL.Path, rec.status, time.Since(start))
		}
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type renderOptions struct {
	cfg     spectrogram.Config
	opts    render.Options
	rateSet bool   // -fs given, ignore SigMF sidecars
	out     string // output file for one input, output directory for many
	many    bool
}

func renderPath(path string, ro renderOptions, workers int) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		fmt.Printf("%s %v\n", red("error:"), err)
		return
	}

	if !fileInfo.IsDir() {
		if err := renderEntry(path, ro); err != nil {
			fmt.Printf("%s rendering %s: %v\n", red("error:"), path, err)
		}
		return
	}

	ro.many = true
	if ro.out != "" {
		if err := utils.CreateFolder(ro.out); err != nil {
			fmt.Printf("%s %v\n", red("error:"), err)
			return
		}
	}

	processFilesConcurrently(collectRecordings(path), workers, func(fp string) error {
		return renderEntry(fp, ro)
	})
}

// collectRecordings walks root for files that may hold samples, skipping
// SigMF sidecars and rendered images.
func collectRecordings(root string) []string {
	var filePaths []string
	filepath.Walk(root, func(fp string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(fp)) {
		case iq.MetaExt, ".png", ".json":
			return nil
		}
		filePaths = append(filePaths, fp)
		return nil
	})
	return filePaths
}

func renderEntry(filePath string, ro renderOptions) error {
	cfg := ro.cfg
	if !ro.rateSet {
		meta, ok, err := iq.ReadMetaFor(filePath)
		if err != nil {
			return err
		}
		if ok && meta.SampleRate > 0 {
			cfg.SampleRate = meta.SampleRate
		}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read '%s': %v", filePath, err)
	}

	res, err := core.ComputeSpectrogram(data, cfg, ro.opts)
	if err != nil {
		return fmt.Errorf("failed to render '%s' [%s]: %v", filePath, core.ErrorKind(err), err)
	}

	outPath := strings.TrimSuffix(filePath, filepath.Ext(filePath)) + ".png"
	switch {
	case ro.many && ro.out != "":
		outPath = filepath.Join(ro.out, filepath.Base(outPath))
	case !ro.many && ro.out != "":
		outPath = ro.out
	}
	if err := os.WriteFile(outPath, res.PNG, 0o644); err != nil {
		return fmt.Errorf("failed to write '%s': %v", outPath, err)
	}

	if res.Dropped > 0 {
		fmt.Printf("%s %s: ignored %d trailing bytes\n", yellow("warning:"), filePath, res.Dropped)
	}
	fmt.Printf("rendered %s -> %s (%d frames x %d bins, %s)\n",
		filePath, green(outPath), res.Matrix.Frames, res.Matrix.Bins, res.Elapsed.Round(time.Millisecond))
	return nil
}

func processFilesConcurrently(filePaths []string, maxWorkers int, process func(string) error) {
	numFiles := len(filePaths)

	if numFiles == 0 {
		fmt.Println("no files to process")
		return
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() / 2
	}
	if numFiles < maxWorkers {
		maxWorkers = numFiles
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	jobs := make(chan string, numFiles)
	results := make(chan error, numFiles)

	for w := 0; w < maxWorkers; w++ {
		go func() {
			for fp := range jobs {
				results <- process(fp)
			}
		}()
	}

	for _, fp := range filePaths {
		jobs <- fp
	}
	close(jobs)

	successCount, errorCount := 0, 0
	for i := 0; i < numFiles; i++ {
		if err := <-results; err != nil {
			fmt.Printf("%s %v\n", red("error:"), err)
			errorCount++
		} else {
			successCount++
		}
	}

	fmt.Printf("\nprocessed %d files: %s successful, %s failed\n",
		numFiles, green(successCount), red(errorCount))
}

func store(path string) {
	dbClient, err := db.NewDBClient()
	if err != nil {
		fmt.Printf("%s creating DB client: %v\n", red("error:"), err)
		return
	}
	defer dbClient.Close()

	fileInfo, err := os.Stat(path)
	if err != nil {
		fmt.Printf("%s %v\n", red("error:"), err)
		return
	}

	filePaths := []string{path}
	if fileInfo.IsDir() {
		filePaths = collectRecordings(path)
	}

	processFilesConcurrently(filePaths, 0, func(fp string) error {
		data, err := os.ReadFile(fp)
		if err != nil {
			return err
		}
		id, err := dbClient.Store(data, filepath.Base(fp))
		if err != nil {
			return fmt.Errorf("failed to store '%s': %v", fp, err)
		}
		fmt.Printf("stored %s as %s (%s)\n", fp, cyan(id), utils.FormatBytes(int64(len(data))))
		return nil
	})
}

func list() {
	dbClient, err := db.NewDBClient()
	if err != nil {
		fmt.Printf("%s creating DB client: %v\n", red("error:"), err)
		return
	}
	defer dbClient.Close()

	blobs, err := dbClient.List()
	if err != nil {
		fmt.Printf("%s listing blobs: %v\n", red("error:"), err)
		return
	}
	if len(blobs) == 0 {
		fmt.Println("no blobs stored")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cyan("ID"), cyan("NAME"), cyan("SIZE"), cyan("CREATED"))
	for _, b := range blobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Name, utils.FormatBytes(b.Size), b.CreatedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}

func fetch(id, outPath string) {
	dbClient, err := db.NewDBClient()
	if err != nil {
		fmt.Printf("%s creating DB client: %v\n", red("error:"), err)
		return
	}
	defer dbClient.Close()

	data, err := dbClient.Fetch(id)
	if err != nil {
		fmt.Printf("%s %v\n", red("error:"), err)
		return
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Printf("%s %v\n", red("error:"), err)
		return
	}
	fmt.Printf("wrote %s (%s)\n", green(outPath), utils.FormatBytes(int64(len(data))))
}

func erase() {
	dbClient, err := db.NewDBClient()
	if err != nil {
		fmt.Printf("%s creating DB client: %v\n", red("error:"), err)
		return
	}
	defer dbClient.Close()

	if err := dbClient.DeleteAll(); err != nil {
		fmt.Printf("%s deleting blobs: %v\n", red("error:"), err)
		return
	}
	fmt.Println(green("blob store cleared"))
}

type generateOptions struct {
	n          int
	snrDB      float64
	toneHz     float64
	sampleRate float64
	seed       uint64
}

// generate writes a synthetic cf32 recording and its SigMF sidecar: QPSK
// symbols in white noise, or a pure tone when toneHz is non-zero.
func generate(outPath string, g generateOptions) {
	var (
		samples iq.Samples
		desc    string
	)
	if g.toneHz != 0 {
		samples = iq.GenerateTone(g.n, g.toneHz, g.sampleRate, 1)
		desc = fmt.Sprintf("complex tone at %g Hz", g.toneHz)
	} else {
		noisePower := math.Pow(10, -g.snrDB/10)
		samples = iq.GenerateQPSK(g.n, noisePower, g.seed)
		desc = fmt.Sprintf("QPSK symbols, noise power %g", noisePower)
	}

	if err := iq.WriteFile(outPath, samples); err != nil {
		fmt.Printf("%s %v\n", red("error:"), err)
		return
	}

	metaPath, err := iq.WriteMetaFor(outPath, iq.Meta{
		Datatype:    iq.DatatypeCF32,
		SampleRate:  g.sampleRate,
		Description: desc,
	})
	if err != nil {
		fmt.Printf("%s %v\n", red("error:"), err)
		return
	}

	fmt.Printf("wrote %d samples to %s (%s), metadata in %s\n",
		len(samples), green(outPath), desc, metaPath)
}
