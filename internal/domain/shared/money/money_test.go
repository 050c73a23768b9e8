package money

import "testing"

func TestFromMajorRounds(t *testing.T) {
	m, err := FromMajor(19.999, "usd")
	if err != nil {
		t.Fatalf("FromMajor: %v", err)
	}
	if m.Amount != 2000 || m.Currency != "USD" {
		t.Fatalf("got %+v", m)
	}
	if _, err := FromMajor(-1, "USD"); err != ErrInvalidAmount {
		t.Fatalf("negative amount: err=%v", err)
	}
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	if _, err := Must(100, "USD").Add(Must(100, "EUR")); err != ErrCurrencyMismatch {
		t.Fatalf("err=%v want=%v", err, ErrCurrencyMismatch)
	}
}

func TestPercentAndString(t *testing.T) {
	m := Must(70000, "USD")
	if got := m.Percent(10).Amount; got != 7000 {
		t.Fatalf("10%% of 700.00 = %d", got)
	}
	if s := Must(-1205, "USD").String(); s != "-12.05 USD" {
		t.Fatalf("String()=%q", s)
	}
}
