package economy

import (
	"math"
	"testing"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestFirm_EmptyFirmOffersReservationWage(t *testing.T) {
	f := NewFirm(FirmID{}, DefaultParams(1, 1))
	if got := f.WageOffer(1); got != 1000 {
		t.Fatalf("WageOffer=%v want=1000", got)
	}
	if got := f.ProductionOutput(); got != 0 {
		t.Fatalf("ProductionOutput=%v want=0", got)
	}
	f.SettleIncome(1, 0)
	if f.LabourIncome != 0 || f.CapitalIncome != 0 {
		t.Fatalf("empty firm paid labour=%v capital=%v", f.LabourIncome, f.CapitalIncome)
	}
}

func TestFirm_ProductionAndMarginalProducts(t *testing.T) {
	f := NewFirm(FirmID{}, DefaultParams(1, 1))
	f.Labour = 8
	f.Capital = 1

	if got := f.ProductionOutput(); !approx(got, 40, 1e-12) {
		t.Fatalf("output=%v want=40", got)
	}
	if got := f.MarginalProductLabour(); !approx(got, 10.0/3, 1e-12) {
		t.Fatalf("MPL=%v want=%v", got, 10.0/3)
	}
	if got := f.MarginalProductCapital(); !approx(got, 40.0/3, 1e-12) {
		t.Fatalf("MPK=%v want=%v", got, 40.0/3)
	}
	if got := f.WageOffer(2); !approx(got, 20.0/3, 1e-12) {
		t.Fatalf("WageOffer(2)=%v want=%v", got, 20.0/3)
	}
}

func TestFirm_SettleIncome(t *testing.T) {
	tests := []struct {
		name         string
		alpha        [2]float64
		tfp, l, k    float64
		wantLabour   float64
		wantCapital  float64
		wantRevenue  float64
	}{
		// Constant returns: the split exhausts revenue.
		{"constant returns", [2]float64{2.0 / 3, 1.0 / 3}, 10, 8, 1, 80.0 / 3, 40.0 / 3, 40},
		// Decreasing returns: labour gets a_L·Q and capital a_K·Q, leaving a residual.
		{"decreasing returns", [2]float64{0.5, 0.3}, 1, 4, 1, 1, 0.6, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFirm(FirmID{}, DefaultParams(1, 1))
			f.Alpha = tc.alpha
			f.TFP = tc.tfp
			f.Labour = tc.l
			f.Capital = tc.k
			f.SettleIncome(1, f.ProductionOutput())

			if !approx(f.LabourIncome, tc.wantLabour, 1e-12) {
				t.Fatalf("labour income=%v want=%v", f.LabourIncome, tc.wantLabour)
			}
			if !approx(f.CapitalIncome, tc.wantCapital, 1e-12) {
				t.Fatalf("capital income=%v want=%v", f.CapitalIncome, tc.wantCapital)
			}
			if !approx(f.Revenue, tc.wantRevenue, 1e-12) {
				t.Fatalf("revenue=%v want=%v", f.Revenue, tc.wantRevenue)
			}
		})
	}
}

func TestFirm_VacancyCountFloor(t *testing.T) {
	tests := []struct {
		target, labour float64
		want           float64
	}{
		{0, 0, 100},
		{0, 50, 100}, // overstaffed still advertises the floor
		{1005, 5, 100},
		{2005, 5, 200},
	}
	for _, tc := range tests {
		f := NewFirm(FirmID{}, DefaultParams(1, 1))
		f.TargetL = tc.target
		f.Labour = tc.labour
		if got := f.VacancyCount(); got != tc.want {
			t.Errorf("VacancyCount(target=%v, labour=%v)=%v want=%v", tc.target, tc.labour, got, tc.want)
		}
	}
}

func TestFirm_HireAndRelease(t *testing.T) {
	f := NewFirm(FirmID{}, DefaultParams(1, 1))
	f.Vacancies = 100
	f.hire(1, 1.5)
	f.hire(2, 0.5)
	if f.Labour != 2 || len(f.Employees) != 2 || f.Vacancies != 98 {
		t.Fatalf("after hires labour=%v employees=%v vacancies=%v", f.Labour, f.Employees, f.Vacancies)
	}
	if !f.release(1, 1.5) {
		t.Fatalf("release of employee 1 failed")
	}
	if f.release(1, 1.5) {
		t.Fatalf("released employee 1 twice")
	}
	if !f.release(2, 0.5) {
		t.Fatalf("release of employee 2 failed")
	}
	if f.Labour != 0 || len(f.Employees) != 0 {
		t.Fatalf("after releases labour=%v employees=%v", f.Labour, f.Employees)
	}
}
