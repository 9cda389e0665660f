// Command datagen writes a synthetic labelled dataset for smoke-testing
// the training pipeline. Real articles use a measured newswire register,
// fake ones a sensationalist one, so the classes are separable enough
// for the classifier bank to learn something meaningful.
//
// Usage: go run ./cmd/datagen -out dataset.csv -rows 400
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
)

var realTemplates = []string{
	"The {agency} announced {day} that {topic} figures for the quarter showed a {percent} percent change, in line with analyst expectations.",
	"Officials from the {agency} confirmed that the new {topic} policy will take effect next month after a public comment period.",
	"Researchers at {university} published a peer-reviewed study on {topic}, noting that further replication is needed before drawing firm conclusions.",
	"The city council voted {day} to approve funding for {topic} improvements, with construction expected to begin in the spring.",
	"According to data released by the {agency}, {topic} levels remained stable compared with the same period last year.",
	"A spokesperson for {university} said the {topic} program will expand to three additional campuses following a successful pilot.",
	"The {agency} issued updated guidance on {topic} {day}, citing recent findings from an independent review panel.",
	"Local officials reported that {topic} services resumed normal operations {day} after scheduled maintenance was completed.",
	"Economists surveyed by the {agency} expect {topic} growth of about {percent} percent this year, a modest revision from earlier forecasts.",
	"The committee reviewing {topic} standards heard testimony from experts at {university} before adjourning until next week.",
	"Regulators at the {agency} opened a routine audit of {topic} reporting practices, a process expected to take several months.",
	"A joint statement from the {agency} and {university} outlined a five-year research plan focused on {topic}.",
}

var fakeTemplates = []string{
	"SHOCKING: Secret {topic} documents PROVE the {agency} has been LYING to you all along, insiders reveal!!!",
	"You won't BELIEVE what scientists at {university} are HIDING about {topic}. The truth they don't want you to know!",
	"BREAKING!!! Anonymous whistleblower EXPOSES massive {topic} cover-up. Share before this gets DELETED!",
	"Doctors HATE this one weird {topic} trick that the {agency} has BANNED. Number {percent} will blow your mind!",
	"URGENT: {topic} crisis is 1000 times WORSE than the mainstream media admits. Wake up, people!",
	"EXPOSED: The {agency} secretly spent BILLIONS on a hidden {topic} program. This changes EVERYTHING!",
	"Miracle {topic} cure SUPPRESSED by big corporations! One brave insider from {university} finally speaks out!",
	"They said it was impossible, but this {topic} discovery PROVES everyone at the {agency} wrong. Spread the word NOW!",
	"ALERT: New {topic} law will take away YOUR rights next week. The media is SILENT. Share immediately!!!",
	"Leaked footage shows {topic} experiment gone HORRIBLY wrong at {university}. Authorities are covering it up!",
	"The REAL reason behind the {topic} shortage will SHOCK you. Hint: follow the money to the {agency}!",
	"100 percent PROOF that {topic} statistics are FAKED. Do your own research before it is too late!!!",
}

var fills = map[string][]string{
	"agency":     {"Treasury Department", "Department of Health", "Federal Reserve", "Environmental Protection Agency", "Bureau of Labor Statistics", "Transportation Authority", "National Science Foundation"},
	"topic":      {"employment", "vaccination", "climate", "housing", "education", "energy", "transportation", "healthcare", "inflation", "agriculture"},
	"university": {"Stanford University", "MIT", "the University of Michigan", "Johns Hopkins University", "UC Berkeley", "Oxford University"},
	"day":        {"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
	"percent":    {"2", "3", "5", "7", "12"},
}

// fillKeys is sorted so template filling is deterministic for a given seed.
var fillKeys = []string{"agency", "day", "percent", "topic", "university"}

func fillTemplate(tpl string, rng *rand.Rand) string {
	out := tpl
	for _, key := range fillKeys {
		slot := "{" + key + "}"
		for strings.Contains(out, slot) {
			out = strings.Replace(out, slot, fills[key][rng.Intn(len(fills[key]))], 1)
		}
	}
	return out
}

func title(text string) string {
	words := strings.Fields(text)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}

func main() {
	outPath := flag.String("out", "dataset.csv", "output CSV path")
	rows := flag.Int("rows", 400, "total number of rows (split evenly between classes)")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("creating %s: %v", *outPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"title", "text", "label"}); err != nil {
		log.Fatalf("writing header: %v", err)
	}

	perClass := *rows / 2
	for i := 0; i < perClass; i++ {
		text := fillTemplate(realTemplates[rng.Intn(len(realTemplates))], rng)
		if err := w.Write([]string{title(text), text, "real"}); err != nil {
			log.Fatalf("writing row: %v", err)
		}
		text = fillTemplate(fakeTemplates[rng.Intn(len(fakeTemplates))], rng)
		if err := w.Write([]string{title(text), text, "fake"}); err != nil {
			log.Fatalf("writing row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("flushing CSV: %v", err)
	}

	fmt.Printf("wrote %d rows (%d real, %d fake) to %s\n", perClass*2, perClass, perClass, *outPath)
}
