// Package qbank holds the pre-authored fallback question bank used when the
// external question generation collaborator is unavailable or returns a
// malformed response.
package qbank

import (
	"github.com/placehub/placement-backend/internal/model"
)

// Seed is a pre-authored question before it is bound to a template.
type Seed struct {
	Text         string
	Options      [model.OptionCount]string
	CorrectIndex int
	Explanation  string
}

// Fallback returns exactly count seeds for the given category, cycling the
// bank in order. Selection is stable: the same category and count always
// yield the same ordered result. Unknown categories use the aptitude bank.
func Fallback(category model.Category, count int) []Seed {
	bank, ok := banks[category]
	if !ok {
		bank = banks[model.CategoryAptitude]
	}

	seeds := make([]Seed, count)
	for i := 0; i < count; i++ {
		seeds[i] = bank[i%len(bank)]
	}
	return seeds
}

var banks = map[model.Category][]Seed{
	model.CategoryAptitude: {
		{
			Text:         "A train travels 120 km in 2 hours. What is its average speed?",
			Options:      [4]string{"40 km/h", "60 km/h", "80 km/h", "120 km/h"},
			CorrectIndex: 1,
			Explanation:  "Average speed = distance / time = 120 / 2 = 60 km/h.",
		},
		{
			Text:         "If 5 machines produce 5 widgets in 5 minutes, how long do 100 machines need for 100 widgets?",
			Options:      [4]string{"5 minutes", "100 minutes", "20 minutes", "1 minute"},
			CorrectIndex: 0,
			Explanation:  "Each machine makes one widget in 5 minutes regardless of fleet size.",
		},
		{
			Text:         "Which number completes the series 2, 6, 12, 20, 30, ...?",
			Options:      [4]string{"40", "42", "44", "36"},
			CorrectIndex: 1,
			Explanation:  "Differences grow by 2: 4, 6, 8, 10, then 12, so 30 + 12 = 42.",
		},
		{
			Text:         "A clock shows 3:15. What is the angle between the hour and minute hands?",
			Options:      [4]string{"0 degrees", "7.5 degrees", "15 degrees", "30 degrees"},
			CorrectIndex: 1,
			Explanation:  "The hour hand moves 7.5 degrees past 3 in 15 minutes while the minute hand sits on 3.",
		},
		{
			Text:         "In a row of students, Ravi is 7th from the left and 11th from the right. How many students are in the row?",
			Options:      [4]string{"16", "17", "18", "19"},
			CorrectIndex: 1,
			Explanation:  "7 + 11 counts Ravi twice, so the row has 7 + 11 - 1 = 17 students.",
		},
	},
	model.CategoryCoding: {
		{
			Text:         "What is the worst-case time complexity of binary search on a sorted array of n elements?",
			Options:      [4]string{"O(n)", "O(log n)", "O(n log n)", "O(1)"},
			CorrectIndex: 1,
			Explanation:  "Each comparison halves the search space.",
		},
		{
			Text:         "Which data structure gives O(1) average lookup by key?",
			Options:      [4]string{"Linked list", "Binary search tree", "Hash table", "Sorted array"},
			CorrectIndex: 2,
			Explanation:  "Hash tables index buckets directly from the key's hash.",
		},
		{
			Text:         "What does a stable sorting algorithm guarantee?",
			Options:      [4]string{"O(n log n) runtime", "Equal elements keep their relative order", "In-place operation", "No extra comparisons"},
			CorrectIndex: 1,
			Explanation:  "Stability concerns the relative order of equal keys, not performance.",
		},
		{
			Text:         "Which traversal of a binary search tree visits keys in ascending order?",
			Options:      [4]string{"Pre-order", "In-order", "Post-order", "Level-order"},
			CorrectIndex: 1,
			Explanation:  "In-order traversal visits left subtree, node, then right subtree.",
		},
		{
			Text:         "A function that calls itself must have what to terminate?",
			Options:      [4]string{"A global variable", "A base case", "A loop", "Tail-call optimization"},
			CorrectIndex: 1,
			Explanation:  "Without a base case the recursion never stops.",
		},
	},
	model.CategoryTechnical: {
		{
			Text:         "Which protocol guarantees ordered, reliable delivery of a byte stream?",
			Options:      [4]string{"UDP", "TCP", "ICMP", "ARP"},
			CorrectIndex: 1,
			Explanation:  "TCP provides sequencing, acknowledgement, and retransmission.",
		},
		{
			Text:         "In a relational database, what does a foreign key enforce?",
			Options:      [4]string{"Uniqueness", "Referential integrity", "Indexing", "Normalization"},
			CorrectIndex: 1,
			Explanation:  "A foreign key requires the referenced row to exist.",
		},
		{
			Text:         "What is the primary purpose of an operating system's scheduler?",
			Options:      [4]string{"Allocate disk space", "Decide which process runs next", "Manage network routes", "Compile programs"},
			CorrectIndex: 1,
			Explanation:  "The scheduler multiplexes CPU time across runnable processes.",
		},
		{
			Text:         "Which HTTP status code indicates the client sent an invalid request?",
			Options:      [4]string{"200", "301", "400", "502"},
			CorrectIndex: 2,
			Explanation:  "4xx codes signal client errors; 400 is the generic bad request.",
		},
		{
			Text:         "What does DNS resolve?",
			Options:      [4]string{"MAC addresses to IPs", "Domain names to IP addresses", "Ports to services", "URLs to HTML"},
			CorrectIndex: 1,
			Explanation:  "DNS maps human-readable names to network addresses.",
		},
	},
	model.CategoryMathematics: {
		{
			Text:         "What is the derivative of x^2 with respect to x?",
			Options:      [4]string{"x", "2x", "x^2", "2"},
			CorrectIndex: 1,
			Explanation:  "Power rule: d/dx x^n = n x^(n-1).",
		},
		{
			Text:         "What is the value of 7! / 5! ?",
			Options:      [4]string{"42", "35", "21", "56"},
			CorrectIndex: 0,
			Explanation:  "7!/5! = 7 × 6 = 42.",
		},
		{
			Text:         "Two dice are rolled. What is the probability the sum equals 7?",
			Options:      [4]string{"1/6", "1/12", "1/9", "1/8"},
			CorrectIndex: 0,
			Explanation:  "Six of the 36 outcomes sum to 7.",
		},
		{
			Text:         "What is the sum of the interior angles of a hexagon?",
			Options:      [4]string{"540 degrees", "720 degrees", "900 degrees", "1080 degrees"},
			CorrectIndex: 1,
			Explanation:  "(n - 2) × 180 with n = 6 gives 720.",
		},
		{
			Text:         "If log10(x) = 3, what is x?",
			Options:      [4]string{"30", "100", "1000", "3"},
			CorrectIndex: 2,
			Explanation:  "log10(x) = 3 means x = 10^3.",
		},
	},
}
