package benefits

// Childbirth lump-sum payment per child from April 2023, in yen.
const ChildbirthLumpSumAmount = 500_000

// Maternity leave spans 42 days before and 56 days after birth.
const (
	MaternityLeaveDaysBefore = 42
	MaternityLeaveDaysAfter  = 56
	MaternityLeaveDaysTotal  = MaternityLeaveDaysBefore + MaternityLeaveDaysAfter
)

// MaternityAllowanceRate is the share of the daily standard remuneration paid.
const MaternityAllowanceRate = 2.0 / 3.0

// Childcare leave is paid at the first rate for the first 180 days and at the
// second rate afterwards.
const (
	ChildcareLeaveRateFirst     = 0.67
	ChildcareLeaveRateAfter     = 0.50
	ChildcareLeaveThresholdDays = 180
	DefaultChildcareLeaveDays   = 365
)

// Dependent deduction amounts, in yen.
const (
	DependentDeductionGeneral           = 380_000
	DependentDeductionSpecified         = 630_000
	DependentDeductionElderlyCoresident = 580_000
	DependentDeductionElderlySeparate   = 480_000
)

// ChildbirthLumpSum returns the childbirth lump-sum payment.
func ChildbirthLumpSum() int {
	return ChildbirthLumpSumAmount
}

// MaternityBenefit returns monthly/30 × 2/3 × days. Pass
// MaternityLeaveDaysTotal for the statutory period.
func MaternityBenefit(monthlyRemuneration float64, days int) (float64, error) {
	if err := nonNegative("monthly_remuneration", monthlyRemuneration); err != nil {
		return 0, err
	}
	if err := nonNegative("days", float64(days)); err != nil {
		return 0, err
	}
	daily := monthlyRemuneration / 30 * MaternityAllowanceRate
	return daily * float64(days), nil
}

// ChildcareBenefit splits a childcare leave benefit into its two rate periods.
type ChildcareBenefit struct {
	DailyWage          float64
	FirstPeriodDays    int
	SecondPeriodDays   int
	FirstPeriodAmount  float64
	SecondPeriodAmount float64
	Total              float64
}

// ChildcareLeaveBenefit computes the benefit on a daily wage of
// monthlyWage × 12 / 365.
func ChildcareLeaveBenefit(monthlyWage float64, leaveDays int) (ChildcareBenefit, error) {
	if err := nonNegative("monthly_wage", monthlyWage); err != nil {
		return ChildcareBenefit{}, err
	}
	if err := nonNegative("leave_days", float64(leaveDays)); err != nil {
		return ChildcareBenefit{}, err
	}
	return splitChildcare(monthlyWage*12/365, leaveDays), nil
}

func splitChildcare(dailyWage float64, leaveDays int) ChildcareBenefit {
	first := min(leaveDays, ChildcareLeaveThresholdDays)
	second := max(leaveDays-ChildcareLeaveThresholdDays, 0)

	b := ChildcareBenefit{
		DailyWage:          dailyWage,
		FirstPeriodDays:    first,
		SecondPeriodDays:   second,
		FirstPeriodAmount:  dailyWage * ChildcareLeaveRateFirst * float64(first),
		SecondPeriodAmount: dailyWage * ChildcareLeaveRateAfter * float64(second),
	}
	b.Total = b.FirstPeriodAmount + b.SecondPeriodAmount
	return b
}

// DependentDeduction returns the income tax deduction for a dependent.
// Children under 16 get none; ages 19 to 22 are specified dependents; from 70
// the amount depends on whether the dependent is a coresident parent.
func DependentDeduction(age int, coresidentElderly bool) (int, error) {
	if err := nonNegative("age", float64(age)); err != nil {
		return 0, err
	}

	switch {
	case age < 16:
		return 0, nil
	case age >= 70:
		if coresidentElderly {
			return DependentDeductionElderlyCoresident, nil
		}
		return DependentDeductionElderlySeparate, nil
	case age >= 19 && age < 23:
		return DependentDeductionSpecified, nil
	default:
		return DependentDeductionGeneral, nil
	}
}
