// Command genmock generates synthetic station CSV files and a matching
// detection request fixture for local runs and the integration tests. It runs
// the actual domain package over the generated data and prints the event
// counts to update test assertions with.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir data/mock \
//	  -stations athens,rome,madrid \
//	  -start 1961 -end 2020 \
//	  -requests-out data/mock/requests.jsonl
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/heatwave-etl/internal/adapter/station"
	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

// climate shapes one synthetic station.
type climate struct {
	meanTmax   float64 // annual mean of the daily maximum
	amplitude  float64 // half the summer-winter difference
	diurnal    float64 // tmax - tmin
	noise      float64 // std of day-to-day noise
	warming    float64 // trend in degrees per decade
	waveChance float64 // probability of a summer heat wave per year
}

var defaultClimate = climate{meanTmax: 22, amplitude: 9, diurnal: 10, noise: 2.2, warming: 0.25, waveChance: 0.5}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory to write station CSV files to")
	names := flag.String("stations", "athens,rome,madrid", "comma-separated station names")
	startYear := flag.Int("start", 1961, "first year")
	endYear := flag.Int("end", 2020, "last year")
	gapPct := flag.Float64("gap-pct", 0.5, "share of days left missing, in percent")
	seed := flag.Uint64("seed", 42, "random seed")
	requestsOut := flag.String("requests-out", "", "optional path for a JSON lines request fixture")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	if *endYear < *startYear {
		return fmt.Errorf("-end %d before -start %d", *endYear, *startYear)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	stations := strings.Split(*names, ",")
	for _, name := range stations {
		path := filepath.Join(*outDir, name+".csv")
		rng := rand.New(rand.NewPCG(*seed, stationSeed(name)))
		rows, missing := generate(rng, defaultClimate, *startYear, *endYear, *gapPct)
		if err := os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("%s: %d days, %d missing", path, len(rows), missing)
	}

	if *requestsOut != "" {
		if err := writeRequests(*requestsOut, stations); err != nil {
			return fmt.Errorf("writing request fixture: %w", err)
		}
		log.Printf("wrote request fixture: %s", *requestsOut)
	}

	return printStats(*outDir, stations)
}

// generate returns one CSV row per day and the number of missing days.
func generate(rng *rand.Rand, c climate, startYear, endYear int, gapPct float64) ([]string, int) {
	var (
		rows    []string
		missing int
	)
	start := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	for year := startYear; year <= endYear; year++ {
		waveStart, waveLen := -1, 0
		if rng.Float64() < c.waveChance {
			waveStart = 160 + rng.IntN(70) // mid June to late August
			waveLen = 3 + rng.IntN(8)
		}
		for d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
			decades := d.Sub(start).Hours() / 24 / 3652.5
			// Coldest around mid January, warmest around mid July.
			seasonal := -c.amplitude * math.Cos(2*math.Pi*float64(d.YearDay()-15)/365.25)
			tmax := c.meanTmax + seasonal + c.warming*decades + rng.NormFloat64()*c.noise
			if doy := d.YearDay(); waveStart >= 0 && doy >= waveStart && doy < waveStart+waveLen {
				tmax += 7 + rng.Float64()*3
			}
			tmin := tmax - c.diurnal + rng.NormFloat64()

			if rng.Float64()*100 < gapPct {
				rows = append(rows, fmt.Sprintf("%d,%d,%d,NA,NA", d.Year(), int(d.Month()), d.Day()))
				missing++
				continue
			}
			rows = append(rows, fmt.Sprintf("%d,%d,%d,%.1f,%.1f", d.Year(), int(d.Month()), d.Day(), tmin, tmax))
		}
	}
	return rows, missing
}

func stationSeed(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// writeRequests writes one detection request per station and sample index.
func writeRequests(path string, stations []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	for _, s := range stations {
		for _, idx := range sampleIndices {
			data, err := json.Marshal(domain.DetectionRequest{Station: s + ".csv", Index: idx})
			if err != nil {
				return err
			}
			b.Write(data)
			b.WriteByte('\n')
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

var sampleIndices = []string{"tx90p", "ctx90pct", "hot_days", "tropical_nights"}

func printStats(dir string, stations []string) error {
	fmt.Println("\n=== Stats for updating test assertions ===")
	opts := domain.DefaultOptions()
	sort.Strings(stations)
	for _, s := range stations {
		for _, name := range sampleIndices {
			idx, err := domain.LookupIndex(name)
			if err != nil {
				return err
			}
			series, err := station.Load(filepath.Join(dir, s+".csv"), idx.Variable)
			if err != nil {
				return err
			}
			result, err := domain.Detect(series, idx, opts)
			if err != nil {
				return fmt.Errorf("%s %s: %w", s, name, err)
			}
			heatWaveYears := 0
			for _, m := range result.Metrics {
				if m.HasHeatWaves() {
					heatWaveYears++
				}
			}
			fmt.Printf("%-10s %-16s events=%-4d years=%-3d heat_wave_years=%-3d reference_mean=%.1f\n",
				s, name, len(result.Events), len(result.Metrics), heatWaveYears, result.ReferenceMean)
		}
	}
	return nil
}
