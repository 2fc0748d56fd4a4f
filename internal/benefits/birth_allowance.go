package benefits

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MedicalDeductionBase is the threshold above which medical expenses are deductible.
const MedicalDeductionBase = 100_000

// DefaultIncomeTaxRate is the marginal rate assumed for medical deduction relief.
const DefaultIncomeTaxRate = 0.10

// BirthAllowanceInput holds the household figures for a childbirth estimate.
type BirthAllowanceInput struct {
	MonthlySalary          float64 `json:"monthly_salary" validate:"gte=0"`
	ChildcareLeaveDays     int     `json:"childcare_leave_days" validate:"gte=0"`
	MedicalExpenses        float64 `json:"medical_expenses" validate:"gte=0"`
	InsuranceReimbursement float64 `json:"insurance_reimbursement" validate:"gte=0"`
	IncomeTaxRate          float64 `json:"income_tax_rate" validate:"gte=0,lte=1"`
}

// DefaultBirthAllowanceInput returns an input with a year of childcare leave
// and the default tax rate.
func DefaultBirthAllowanceInput(monthlySalary float64) BirthAllowanceInput {
	return BirthAllowanceInput{
		MonthlySalary:      monthlySalary,
		ChildcareLeaveDays: DefaultChildcareLeaveDays,
		IncomeTaxRate:      DefaultIncomeTaxRate,
	}
}

// MaternityDetail is the breakdown of the maternity allowance.
type MaternityDetail struct {
	DailyWage float64
	Rate      float64
	Days      int
	Amount    float64
}

// MedicalDetail is the breakdown of the medical expense deduction relief.
type MedicalDetail struct {
	MedicalExpenses        float64
	InsuranceReimbursement float64
	DeductibleAmount       float64
	IncomeTaxRate          float64
	ReliefAmount           float64
}

// Summary is the result of a BirthAllowanceCalculator run.
type Summary struct {
	ChildbirthLumpSum             int
	MaternityAllowance            float64
	ChildcareLeaveBenefit         float64
	MedicalExpenseDeductionRelief float64
	ChildcareLeaveDays            int

	Maternity MaternityDetail
	Childcare ChildcareBenefit
	Medical   MedicalDetail
}

// Total returns the sum of all payments and the tax relief.
func (s Summary) Total() float64 {
	return float64(s.ChildbirthLumpSum) + s.MaternityAllowance + s.ChildcareLeaveBenefit + s.MedicalExpenseDeductionRelief
}

// BirthAllowanceCalculator estimates the payments and tax relief around a birth.
// Both the maternity allowance and childcare benefit use a daily wage of
// monthly salary / 30.
type BirthAllowanceCalculator struct {
	in BirthAllowanceInput
}

var inputValidator = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// NewBirthAllowanceCalculator validates in and returns a calculator.
func NewBirthAllowanceCalculator(in BirthAllowanceInput) (*BirthAllowanceCalculator, error) {
	if err := inputValidator.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, toValidationError(verrs[0])
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &BirthAllowanceCalculator{in: in}, nil
}

func toValidationError(fe validator.FieldError) *ValidationError {
	var value float64
	switch v := fe.Value().(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	}
	reason := "non-negative"
	if fe.Tag() == "lte" || fe.Field() == "income_tax_rate" {
		reason = "between 0 and 1"
	}
	return &ValidationError{Field: fe.Field(), Value: value, Reason: reason}
}

func (c *BirthAllowanceCalculator) dailyWage() float64 {
	return c.in.MonthlySalary / 30
}

// ChildbirthLumpSum returns the lump-sum payment.
func (c *BirthAllowanceCalculator) ChildbirthLumpSum() int {
	return ChildbirthLumpSumAmount
}

// MaternityAllowance returns daily wage × 2/3 × 98 days.
func (c *BirthAllowanceCalculator) MaternityAllowance() float64 {
	return c.dailyWage() * MaternityAllowanceRate * MaternityLeaveDaysTotal
}

// ChildcareLeaveBenefit returns the two-period childcare benefit.
func (c *BirthAllowanceCalculator) ChildcareLeaveBenefit() float64 {
	return splitChildcare(c.dailyWage(), c.in.ChildcareLeaveDays).Total
}

func (c *BirthAllowanceCalculator) deductibleMedical() float64 {
	return max(c.in.MedicalExpenses-c.in.InsuranceReimbursement-MedicalDeductionBase, 0)
}

// MedicalExpenseDeductionRelief returns max(expenses − reimbursement − 100000, 0) × tax rate.
func (c *BirthAllowanceCalculator) MedicalExpenseDeductionRelief() float64 {
	return c.deductibleMedical() * c.in.IncomeTaxRate
}

// Calculate computes every component.
func (c *BirthAllowanceCalculator) Calculate() Summary {
	childcare := splitChildcare(c.dailyWage(), c.in.ChildcareLeaveDays)
	relief := c.MedicalExpenseDeductionRelief()

	return Summary{
		ChildbirthLumpSum:             c.ChildbirthLumpSum(),
		MaternityAllowance:            c.MaternityAllowance(),
		ChildcareLeaveBenefit:         childcare.Total,
		MedicalExpenseDeductionRelief: relief,
		ChildcareLeaveDays:            c.in.ChildcareLeaveDays,
		Maternity: MaternityDetail{
			DailyWage: c.dailyWage(),
			Rate:      MaternityAllowanceRate,
			Days:      MaternityLeaveDaysTotal,
			Amount:    c.MaternityAllowance(),
		},
		Childcare: childcare,
		Medical: MedicalDetail{
			MedicalExpenses:        c.in.MedicalExpenses,
			InsuranceReimbursement: c.in.InsuranceReimbursement,
			DeductibleAmount:       c.deductibleMedical(),
			IncomeTaxRate:          c.in.IncomeTaxRate,
			ReliefAmount:           relief,
		},
	}
}

// Yen rounds an amount half away from zero to whole yen.
func Yen(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

// WriteReport prints the summary with amounts in whole yen.
func (s Summary) WriteReport(w io.Writer) error {
	p := message.NewPrinter(language.Japanese)
	rule := strings.Repeat("=", 60)

	lines := []string{
		rule,
		"出産に関する給付金・控除の概算",
		rule,
		p.Sprintf("出産育児一時金          : %12d 円", int64(s.ChildbirthLumpSum)),
		p.Sprintf("出産手当金              : %12d 円", Yen(s.MaternityAllowance)),
		p.Sprintf("育児休業給付金          : %12d 円", Yen(s.ChildcareLeaveBenefit)),
		fmt.Sprintf("  (対象日数: %d 日)", s.ChildcareLeaveDays),
		p.Sprintf("医療費控除による軽減額  : %12d 円", Yen(s.MedicalExpenseDeductionRelief)),
		strings.Repeat("-", 60),
		p.Sprintf("合計                    : %12d 円", Yen(s.Total())),
		rule,
		"※ 出産手当金は健康保険（会社員等）加入者のみ対象です。",
		"※ 医療費控除は確定申告が必要です。",
		"※ 金額はあくまで概算です。詳細は各窓口にご確認ください。",
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
