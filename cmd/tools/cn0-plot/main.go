// Package main provides a C/N0 plotting tool for telemetry captures.
// It reads a JSONL file of tracking diagnostic messages (one JSON object
// per line, as emitted by the UDP/serial telemetry senders), prints
// summary statistics per signal and renders an HTML line chart.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/gnss-track/internal/telemetry"
)

var (
	input  = flag.String("in", "", "Telemetry capture file (JSONL)")
	output = flag.String("out", "cn0.html", "Output HTML chart path")
)

type series struct {
	labels []string
	cn0    []float64
}

func main() {
	flag.Parse()
	if *input == "" {
		log.Fatal("Usage: cn0-plot -in capture.jsonl [-out cn0.html]")
	}

	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("failed to open capture: %v", err)
	}
	defer f.Close()

	bySignal := make(map[string]*series)

	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		var msg telemetry.TrackingMessage
		if err := json.Unmarshal(scan.Bytes(), &msg); err != nil {
			log.Printf("skipping line %d: %v", lineNo, err)
			continue
		}
		key := fmt.Sprintf("SV%02d %s", msg.Sat, msg.Code)
		s := bySignal[key]
		if s == nil {
			s = &series{}
			bySignal[key] = s
		}
		s.labels = append(s.labels, msg.Time.Format("15:04:05.000"))
		s.cn0 = append(s.cn0, msg.CN0)
	}
	if err := scan.Err(); err != nil {
		log.Fatalf("failed to read capture: %v", err)
	}
	if len(bySignal) == 0 {
		log.Fatal("no telemetry messages found")
	}

	keys := make([]string, 0, len(bySignal))
	for k := range bySignal {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s := bySignal[k]
		sorted := append([]float64(nil), s.cn0...)
		sort.Float64s(sorted)
		mean, std := stat.MeanStdDev(s.cn0, nil)
		p5 := stat.Quantile(0.05, stat.Empirical, sorted, nil)
		p95 := stat.Quantile(0.95, stat.Empirical, sorted, nil)
		fmt.Printf("%s: %d samples, mean %.1f dB-Hz (σ %.2f), p5 %.1f, p95 %.1f\n",
			k, len(s.cn0), mean, std, p5, p95)
	}

	if err := renderChart(*output, keys, bySignal); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	fmt.Printf("wrote %s\n", *output)
}

func renderChart(path string, keys []string, bySignal map[string]*series) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "C/N0 over time",
			Subtitle: "tracking telemetry capture",
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "dB-Hz"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	// Use the longest series for the shared x axis.
	longest := keys[0]
	for _, k := range keys {
		if len(bySignal[k].labels) > len(bySignal[longest].labels) {
			longest = k
		}
	}
	line.SetXAxis(bySignal[longest].labels)

	for _, k := range keys {
		s := bySignal[k]
		data := make([]opts.LineData, len(s.cn0))
		for i, v := range s.cn0 {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(k, data)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return line.Render(out)
}
