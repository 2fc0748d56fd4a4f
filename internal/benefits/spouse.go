package benefits

// Income limits for the spouse deductions, in yen of total income.
const (
	SpouseDeductionIncomeLimit = 480_000
	SpouseSpecialIncomeLimit   = 1_330_000
	TaxpayerIncomeLimit        = 10_000_000
)

type bracket struct {
	low, high int
	deduction int
}

// Special spouse deduction tables by taxpayer income band.
var (
	specialUpTo9M = []bracket{
		{480_001, 950_000, 380_000},
		{950_001, 1_000_000, 360_000},
		{1_000_001, 1_050_000, 310_000},
		{1_050_001, 1_100_000, 260_000},
		{1_100_001, 1_150_000, 210_000},
		{1_150_001, 1_200_000, 160_000},
		{1_200_001, 1_250_000, 110_000},
		{1_250_001, 1_300_000, 60_000},
		{1_300_001, 1_330_000, 30_000},
	}
	specialUpTo9_5M = []bracket{
		{480_001, 950_000, 260_000},
		{950_001, 1_000_000, 240_000},
		{1_000_001, 1_050_000, 210_000},
		{1_050_001, 1_100_000, 180_000},
		{1_100_001, 1_150_000, 140_000},
		{1_150_001, 1_200_000, 110_000},
		{1_200_001, 1_250_000, 80_000},
		{1_250_001, 1_300_000, 40_000},
		{1_300_001, 1_330_000, 20_000},
	}
	specialUpTo10M = []bracket{
		{480_001, 950_000, 130_000},
		{950_001, 1_000_000, 120_000},
		{1_000_001, 1_050_000, 110_000},
		{1_050_001, 1_100_000, 90_000},
		{1_100_001, 1_150_000, 70_000},
		{1_150_001, 1_200_000, 60_000},
		{1_200_001, 1_250_000, 40_000},
		{1_250_001, 1_300_000, 20_000},
		{1_300_001, 1_330_000, 10_000},
	}
)

// SpouseDeduction returns the spouse deduction, or the special spouse
// deduction when the spouse earns above SpouseDeductionIncomeLimit. Incomes
// are total income after the employment income deduction, not gross salary.
func SpouseDeduction(taxpayerIncome, spouseIncome int) (int, error) {
	if err := nonNegative("taxpayer_income", float64(taxpayerIncome)); err != nil {
		return 0, err
	}
	if err := nonNegative("spouse_income", float64(spouseIncome)); err != nil {
		return 0, err
	}

	if taxpayerIncome > TaxpayerIncomeLimit {
		return 0, nil
	}

	if spouseIncome <= SpouseDeductionIncomeLimit {
		switch {
		case taxpayerIncome <= 9_000_000:
			return 380_000, nil
		case taxpayerIncome <= 9_500_000:
			return 260_000, nil
		default:
			return 130_000, nil
		}
	}

	if spouseIncome <= SpouseSpecialIncomeLimit {
		return specialSpouseDeduction(taxpayerIncome, spouseIncome), nil
	}
	return 0, nil
}

func specialSpouseDeduction(taxpayerIncome, spouseIncome int) int {
	table := specialUpTo10M
	switch {
	case taxpayerIncome <= 9_000_000:
		table = specialUpTo9M
	case taxpayerIncome <= 9_500_000:
		table = specialUpTo9_5M
	}

	for _, b := range table {
		if spouseIncome >= b.low && spouseIncome <= b.high {
			return b.deduction
		}
	}
	return 0
}
