package query

import (
	"strings"
	"testing"

	"github.com/filecat/filecat"
)

func TestCompileDNFPredicates(t *testing.T) {
	tests := []struct {
		name   string
		dnf    DNF
		expect string
	}{
		{
			name:   "json equality on top-level key",
			dnf:    And(Cmp(ScalarAttr("run"), "==", 4242)),
			expect: `( f_1.metadata @@ '$."run" == 4242' )`,
		},
		{
			name:   "single equals normalizes to double",
			dnf:    And(Cmp(ScalarAttr("run"), "=", 4242)),
			expect: `( f_1.metadata @@ '$."run" == 4242' )`,
		},
		{
			name:   "dotted name is a json key, not a column",
			dnf:    And(Cmp(ScalarAttr("beam.energy"), ">", 6.5)),
			expect: `( f_1.metadata @@ '$."beam.energy" > 6.5' )`,
		},
		{
			name:   "fixed column comparison",
			dnf:    And(Cmp(ScalarAttr("creator"), "==", "alice")),
			expect: `( f_1.creator = 'alice' )`,
		},
		{
			name:   "fixed column range",
			dnf:    And(InRange(ScalarAttr("size"), 100, 200)),
			expect: `( f_1.size between 100 and 200 )`,
		},
		{
			name:   "array any regex case insensitive",
			dnf:    And(Cmp(AnyAttr("files"), "~*", `\.root$`)),
			expect: `( f_1.metadata @? '$."files"[*] ? (@ like_regex "\\.root$" flag "i")' )`,
		},
		{
			name:   "regex case sensitive has no flag",
			dnf:    And(Cmp(ScalarAttr("name_pattern"), "~", "^raw_")),
			expect: `( f_1.metadata @? '$."name_pattern" ? (@ like_regex "^raw_")' )`,
		},
		{
			name:   "negated regex negates inside the filter",
			dnf:    And(Cmp(AnyAttr("files"), "!~*", `\.log$`)),
			expect: `( f_1.metadata @? '$."files"[*] ? (!(@ like_regex "\\.log$" flag "i"))' )`,
		},
		{
			name:   "array subscript",
			dnf:    And(Cmp(SubscriptAttr("runs", 0), "==", 5)),
			expect: `( f_1.metadata @@ '$."runs"[0] == 5' )`,
		},
		{
			name:   "array length comparison",
			dnf:    And(Cmp(LengthAttr("parents"), ">", 2)),
			expect: `( jsonb_array_length(f_1.metadata -> 'parents') > 2 )`,
		},
		{
			name:   "array length negated range absorbs into not between",
			dnf:    And(InRange(LengthAttr("parents"), 2, 5).Negated()),
			expect: `( jsonb_array_length(f_1.metadata -> 'parents') not between 2 and 5 )`,
		},
		{
			name:   "array length double negation cancels",
			dnf:    And(NotInRange(LengthAttr("parents"), 2, 5).Negated()),
			expect: `( jsonb_array_length(f_1.metadata -> 'parents') between 2 and 5 )`,
		},
		{
			name:   "json range",
			dnf:    And(InRange(ScalarAttr("run"), 1, 10)),
			expect: `( f_1.metadata @? '$."run" ? (@ >= 1 && @ <= 10)' )`,
		},
		{
			name:   "json not in range",
			dnf:    And(NotInRange(ScalarAttr("run"), 1, 10)),
			expect: `( f_1.metadata @? '$."run" ? (@ < 1 || @ > 10)' )`,
		},
		{
			name:   "json in set",
			dnf:    And(InSet(ScalarAttr("format"), "root", "hdf5")),
			expect: `( f_1.metadata @? '$."format" ? (@ == "root" || @ == "hdf5")' )`,
		},
		{
			name:   "json not in set",
			dnf:    And(NotInSet(ScalarAttr("format"), "root", "hdf5")),
			expect: `( f_1.metadata @? '$."format" ? (@ != "root" && @ != "hdf5")' )`,
		},
		{
			name:   "fixed column negated set absorbs into not in",
			dnf:    And(InSet(ScalarAttr("creator"), "alice", "bob").Negated()),
			expect: `( f_1.creator not in ('alice', 'bob') )`,
		},
		{
			name:   "presence",
			dnf:    And(Present("run")),
			expect: `( f_1.metadata ? 'run' )`,
		},
		{
			name:   "absence",
			dnf:    And(NotPresent("run")),
			expect: `( not ( f_1.metadata ? 'run' ) )`,
		},
		{
			name:   "negated absence cancels to presence",
			dnf:    And(NotPresent("run").Negated()),
			expect: `( f_1.metadata ? 'run' )`,
		},
		{
			name:   "presence of a fixed column is constant true",
			dnf:    And(Present("creator")),
			expect: `( true )`,
		},
		{
			name:   "absence of a fixed column is constant false",
			dnf:    And(NotPresent("size")),
			expect: `( false )`,
		},
		{
			name: "and term",
			dnf: And(
				Cmp(ScalarAttr("run"), "==", 4242),
				Cmp(ScalarAttr("creator"), "==", "alice"),
			),
			expect: `( f_1.metadata @@ '$."run" == 4242' ) and ( f_1.creator = 'alice' )`,
		},
		{
			name: "disjunction of terms",
			dnf: Or(
				AndTerm{Cmp(ScalarAttr("run"), "==", 1)},
				AndTerm{Cmp(ScalarAttr("run"), "==", 2)},
			),
			expect: `(( f_1.metadata @@ '$."run" == 1' )) or (( f_1.metadata @@ '$."run" == 2' ))`,
		},
		{
			name:   "generic negation wraps once",
			dnf:    And(Cmp(ScalarAttr("run"), "==", 4242).Negated()),
			expect: `( not ( f_1.metadata @@ '$."run" == 4242' ) )`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileDNF(tt.dnf, "f_1")
			if err != nil {
				t.Fatalf("CompileDNF() error: %v", err)
			}
			if got != tt.expect {
				t.Errorf("CompileDNF() =\n%s\nwant:\n%s", got, tt.expect)
			}
		})
	}
}

func TestCompileDNFEmpty(t *testing.T) {
	got, err := CompileDNF(nil, "f_1")
	if err != nil {
		t.Fatalf("CompileDNF(nil) error: %v", err)
	}
	if got != "" {
		t.Errorf("empty DNF should compile to no condition, got %q", got)
	}
}

func TestCompileDNFErrors(t *testing.T) {
	tests := []struct {
		name string
		dnf  DNF
	}{
		{"unknown comparison operator", And(Cmp(ScalarAttr("run"), "<>", 1))},
		{"unknown predicate operator", And(Predicate{Op: "between_ish", Attr: ScalarAttr("run")})},
		{"regex on non-string", And(Cmp(ScalarAttr("run"), "~", true))},
		{"regex on fixed column", And(Cmp(ScalarAttr("creator"), "~", "^a"))},
		{"empty literal set", And(InSet(ScalarAttr("run")))},
		{"unsupported literal", And(Cmp(ScalarAttr("run"), "==", struct{}{}))},
		{"unsupported subscript", And(Cmp(SubscriptAttr("runs", struct{}{}), "==", 1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileDNF(tt.dnf, "f_1")
			if err == nil {
				t.Fatal("CompileDNF() should fail")
			}
			if !filecat.IsCompileErr(err) {
				t.Errorf("error should be a CompileError, got %T: %v", err, err)
			}
		})
	}
}

// The key is JSON-escaped inside the path string, so a hostile name
// cannot break out of the quoted jsonpath.
func TestCompileDNFKeyInjection(t *testing.T) {
	got, err := CompileDNF(And(Cmp(ScalarAttr(`ru"n`), "==", 1)), "f_1")
	if err != nil {
		t.Fatalf("CompileDNF() error: %v", err)
	}
	if !strings.Contains(got, `$."ru\"n"`) {
		t.Errorf("key not JSON-escaped: %s", got)
	}
}
