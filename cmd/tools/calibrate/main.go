// Package main fits path-loss calibration constants from a CSV of
// measured RSSI samples at known distances.
//
// The CSV has a header row and two columns, distance_m and rssi_dbm.
// Each row is one sample taken with the device at a measured distance
// from a scanner. The tool regresses rssi against log10(distance): the
// intercept is the reference power at one metre and the slope is
// -10 times the attenuation factor. Paste the fitted values into the
// config file's ref_power_dbm and attenuation_factor fields.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

var samplesPath = flag.String("samples", "", "CSV of distance_m,rssi_dbm samples (required)")

func main() {
	flag.Parse()
	if *samplesPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logDistances, rssis, err := loadSamples(*samplesPath)
	if err != nil {
		log.Fatalf("Failed to load samples: %v", err)
	}
	if len(rssis) < 2 {
		log.Fatalf("Need at least 2 samples, got %d", len(rssis))
	}

	refPower, attenuation := fit(logDistances, rssis)
	r2 := stat.RSquared(logDistances, rssis, nil, refPower, -10*attenuation)

	fmt.Printf("samples:            %d\n", len(rssis))
	fmt.Printf("ref_power_dbm:      %.2f\n", refPower)
	fmt.Printf("attenuation_factor: %.3f\n", attenuation)
	fmt.Printf("r_squared:          %.4f\n", r2)

	if attenuation < 1.5 || attenuation > 5 {
		fmt.Println("warning: attenuation factor outside the usual indoor range (1.5 to 5)")
	}
}

// fit regresses rssi on log10(distance). The propagation model is
// rssi = refPower - 10*n*log10(d), so the regression slope is -10n and
// the intercept is refPower.
func fit(logDistances, rssis []float64) (refPower, attenuation float64) {
	intercept, slope := stat.LinearRegression(logDistances, rssis, nil, false)
	return intercept, -slope / 10
}

func loadSamples(path string) (logDistances, rssis []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2

	// Header row.
	if _, err := r.Read(); err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line++

		distance, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: bad distance %q", line, record[0])
		}
		if distance <= 0 {
			return nil, nil, fmt.Errorf("line %d: distance must be positive", line)
		}
		rssi, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: bad rssi %q", line, record[1])
		}

		logDistances = append(logDistances, math.Log10(distance))
		rssis = append(rssis, rssi)
	}
	return logDistances, rssis, nil
}
