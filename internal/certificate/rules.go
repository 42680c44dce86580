// Copyright (C) 2025 Jeff Rose
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package certificate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/whiskeyjimbo/CertMate/internal/check"
)

const (
	day = 24 * time.Hour

	validityMetric = "validity"
	timeLayout     = "Jan _2 15:04:05 2006 -07:00"
)

type Case int

const (
	CaseSensitive Case = iota
	CaseInsensitive
)

// checkEqual compares actual against expected. Case-insensitive rules
// report the lower-cased values.
func checkEqual(label, actual, expected string, c Case) *check.Result {
	if c == CaseInsensitive {
		actual, expected = strings.ToLower(actual), strings.ToLower(expected)
	}
	if actual == expected {
		return check.Notice(fmt.Sprintf("%s: %s", label, actual))
	}
	return check.Warn(fmt.Sprintf("%s is %s but expected %s", label, actual, expected))
}

func checkSubjectCN(cn string, expected *string) *check.Result {
	if expected == nil {
		return nil
	}
	if cn == *expected {
		return check.OKWithDetails(fmt.Sprintf("CN=%s", cn), fmt.Sprintf("Subject CN: %s", cn))
	}
	return check.Warn(fmt.Sprintf("Subject CN is %s but expected %s", cn, *expected))
}

func checkSerial(serial string, expected *string) *check.Result {
	if expected == nil {
		return nil
	}
	return checkEqual("Serial", serial, *expected, CaseInsensitive)
}

func checkSubjectAltNames(sans *SubjectAltNames, err error, expected *[]string) *check.Result {
	if expected == nil {
		return nil
	}
	if err != nil {
		return check.Crit(fmt.Sprintf("Subject alt names: %v", err))
	}
	if sans == nil {
		if len(*expected) == 0 {
			return check.Notice("No subject alt names")
		}
		return check.Warn("No subject alt names")
	}

	found := make(map[string]struct{}, len(sans.DNSNames))
	for _, name := range sans.DNSNames {
		found[name] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{}, len(*expected))
	for _, name := range *expected {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := found[name]; !ok {
			missing = append(missing, strconv.Quote(name))
		}
	}
	if len(missing) == 0 {
		return check.Notice("Subject alt names present")
	}
	sort.Strings(missing)
	return check.Warn(fmt.Sprintf("Subject alt names: missing %s", strings.Join(missing, ", ")))
}

func checkSignatureAlgorithm(actual SignatureAlgorithm, err error, expected *SignatureAlgorithm) *check.Result {
	if expected == nil {
		return nil
	}
	if err != nil {
		return check.Warn("Signature algorithm: Parser failed")
	}
	return checkEqual("Signature algorithm", actual.String(), expected.String(), CaseSensitive)
}

func checkPubkeyAlgorithm(pk PublicKey, err error, expected *string) *check.Result {
	if expected == nil {
		return nil
	}
	if err != nil {
		return check.Warn("Invalid public key")
	}
	return checkEqual("Public key algorithm", pk.Algorithm, *expected, CaseSensitive)
}

func checkPubkeySize(pk PublicKey, err error, expected *int) *check.Result {
	if expected == nil {
		return nil
	}
	if err != nil {
		return check.Warn("Invalid public key")
	}
	return checkEqual("Public key size", strconv.Itoa(pk.Size), strconv.Itoa(*expected), CaseSensitive)
}

// checkValidityNotAfter applies the countdown levels. An expired certificate
// is CRIT whatever the levels say.
func checkValidityNotAfter(notAfter, now time.Time, levels *check.Levels[time.Duration]) *check.Result {
	if levels == nil {
		return nil
	}
	remaining := notAfter.Sub(now)
	if remaining <= 0 {
		return check.Crit(fmt.Sprintf("Certificate expired (%s)", formatTime(notAfter)))
	}

	r := levels.Check(remaining, validityMetric, fmt.Sprintf(
		"Certificate expires in %d day(s) (%s)", wholeDays(remaining), formatTime(notAfter)))
	days := r.Metric.Map(func(v float64) float64 { return math.Trunc(v / float64(day)) })
	r.Metric = &days
	return &r
}

func checkMaxValidity(notBefore, notAfter time.Time, maxValidity *time.Duration) *check.Result {
	if maxValidity == nil {
		return nil
	}
	total := notAfter.Sub(notBefore)
	if total < 0 {
		return check.Crit("Invalid certificate validity")
	}
	if total <= *maxValidity {
		return check.Notice(fmt.Sprintf("Max validity %d days", wholeDays(total)))
	}
	return check.Warn(fmt.Sprintf("Max validity is %d days but expected at most %d",
		wholeDays(total), wholeDays(*maxValidity)))
}

func wholeDays(d time.Duration) int64 {
	return int64(d / day)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
