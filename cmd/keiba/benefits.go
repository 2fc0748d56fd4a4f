package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yourusername/keiba-predictor/internal/benefits"
	"github.com/yourusername/keiba-predictor/internal/metrics"
)

var (
	monthlySalary   float64
	leaveDays       int
	medicalExpenses float64
	reimbursement   float64
	taxRate         float64
	dependentAge    int
	coresident      bool
	taxpayerIncome  int
	spouseIncome    int
)

func init() {
	flags := benefitsCmd.Flags()
	flags.Float64Var(&monthlySalary, "salary", 300_000, "Monthly salary in yen")
	flags.IntVar(&leaveDays, "leave-days", benefits.DefaultChildcareLeaveDays, "Childcare leave days")
	flags.Float64Var(&medicalExpenses, "medical-expenses", 0, "Childbirth medical expenses in yen")
	flags.Float64Var(&reimbursement, "reimbursement", 0, "Insurance reimbursement in yen")
	flags.Float64Var(&taxRate, "tax-rate", benefits.DefaultIncomeTaxRate, "Marginal income tax rate (0-1)")
	flags.IntVar(&dependentAge, "dependent-age", -1, "Age of a dependent to compute the dependent deduction for")
	flags.BoolVar(&coresident, "coresident", false, "The elderly dependent lives with the taxpayer")
	flags.IntVar(&taxpayerIncome, "taxpayer-income", -1, "Taxpayer total income in yen, for the spouse deduction")
	flags.IntVar(&spouseIncome, "spouse-income", -1, "Spouse total income in yen, for the spouse deduction")
}

var benefitsCmd = &cobra.Command{
	Use:   "benefits",
	Short: "Estimate childbirth benefits and related tax deductions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenefits(os.Stdout)
	},
}

func runBenefits(w io.Writer) error {
	calc, err := benefits.NewBirthAllowanceCalculator(benefits.BirthAllowanceInput{
		MonthlySalary:          monthlySalary,
		ChildcareLeaveDays:     leaveDays,
		MedicalExpenses:        medicalExpenses,
		InsuranceReimbursement: reimbursement,
		IncomeTaxRate:          taxRate,
	})
	metrics.RecordBenefitCalculation("birth_allowance", err)
	if err != nil {
		return err
	}
	if err := calc.Calculate().WriteReport(w); err != nil {
		return err
	}

	p := message.NewPrinter(language.Japanese)

	if dependentAge >= 0 {
		amount, err := benefits.DependentDeduction(dependentAge, coresident)
		metrics.RecordBenefitCalculation("dependent_deduction", err)
		if err != nil {
			return err
		}
		if _, err := p.Fprintf(w, "扶養控除 (%d 歳)        : %12d 円\n", dependentAge, amount); err != nil {
			return err
		}
	}

	if taxpayerIncome >= 0 && spouseIncome >= 0 {
		amount, err := benefits.SpouseDeduction(taxpayerIncome, spouseIncome)
		metrics.RecordBenefitCalculation("spouse_deduction", err)
		if err != nil {
			return err
		}
		if _, err := p.Fprintf(w, "配偶者(特別)控除        : %12d 円\n", amount); err != nil {
			return err
		}
	} else if taxpayerIncome >= 0 || spouseIncome >= 0 {
		return fmt.Errorf("--taxpayer-income and --spouse-income must be given together")
	}
	return nil
}
