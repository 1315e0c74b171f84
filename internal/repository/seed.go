package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

type seedBeneficiary struct {
	name   string
	region string
	score  int
	risk   models.RiskLevel
	stage  models.LoanStage
	loan   float64
}

var demoPortfolio = []seedBeneficiary{
	{"Aarav Sharma", "Maharashtra", 786, models.RiskLow, models.LoanStageActive, 50000},
	{"Diya Patel", "Gujarat", 650, models.RiskMedium, models.LoanStageActive, 40000},
	{"Kiran Reddy", "Andhra Pradesh", 520, models.RiskHigh, models.LoanStageDefaulted, 30000},
	{"Suresh Kumar", "Uttar Pradesh", 710, models.RiskLow, models.LoanStageApproved, 45000},
	{"Meena Kumari", "Bihar", 680, models.RiskMedium, models.LoanStageVerification, 25000},
	{"Rajesh Singh", "Rajasthan", 810, models.RiskLow, models.LoanStageActive, 60000},
	{"Anita Das", "West Bengal", 590, models.RiskHigh, models.LoanStageActive, 20000},
	{"Vijay Iyer", "Tamil Nadu", 750, models.RiskLow, models.LoanStageApproved, 55000},
}

var demoRepayments = []models.Repayment{
	{ID: "pay_01", DueDate: "2024-08-05", Amount: 5000, Status: "Paid"},
	{ID: "pay_02", DueDate: "2024-09-05", Amount: 5000, Status: "Upcoming"},
	{ID: "pay_03", DueDate: "2024-10-05", Amount: 5000, Status: "Upcoming"},
}

var demoAdvice = []models.Advice{
	{ID: "adv_1", Title: "Tip for Rural Entrepreneurs", Advice: "Consider using UPI for business transactions to create a digital footprint, which can improve your credit score."},
	{ID: "adv_2", Title: "Saving for a Rainy Day", Advice: "Try to save at least 10% of your monthly income in a separate savings account for emergencies."},
	{ID: "adv_3", Title: "Understanding Interest", Advice: "Always check the interest rate on any loan. A lower rate can save you a lot of money over time."},
}

// Seed заполняет каталог демо-аккаунтами и портфель демо-заемщиками.
func Seed(ctx context.Context, users *UserRepository, portfolio *BeneficiaryRepository) error {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	demoUsers := []models.User{
		{Name: "Aarav Sharma (Demo)", Email: "beneficiary@example.com", Role: models.RoleBeneficiary, Region: "Maharashtra"},
		{Name: "Priya Singh (Demo)", Email: "officer@example.com", Role: models.RoleOfficer, Region: "National"},
		{Name: "Rohan Gupta (Demo)", Email: "admin@example.com", Role: models.RoleAdmin, Region: "National"},
		{Name: "Sunita Devi", Email: "sunita.d@example.com", Role: models.RoleBeneficiary, Region: "Bihar"},
		{Name: "Amit Kumar", Email: "amit.k@example.com", Role: models.RoleBeneficiary, Region: "Uttar Pradesh"},
	}

	var aarav models.User
	for i, user := range demoUsers {
		user.ID = uuid.New()
		user.Demo = true
		user.Avatar = "https://i.pravatar.cc/150?u=" + user.ID.String()
		user.CreatedAt = base.Add(time.Duration(i) * time.Minute)

		created, err := users.Create(ctx, user)
		if err != nil {
			return err
		}
		if i == 0 {
			aarav = created
		}
	}

	for i, seed := range demoPortfolio {
		score := seed.score
		risk := seed.risk
		b := models.Beneficiary{
			Name:       seed.name,
			Region:     seed.region,
			LoanAmount: seed.loan,
			Score:      &score,
			Risk:       &risk,
			Insights:   []string{},
			LoanStage:  seed.stage,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if i == 0 {
			b.UserID = &aarav.ID
			b.Insights = []string{
				"Excellent repayment history.",
				"Diversified sources of income.",
				"Low credit utilization.",
			}
			b.Repayments = append([]models.Repayment(nil), demoRepayments...)
		}
		if _, err := portfolio.Create(ctx, b); err != nil {
			return err
		}
	}

	portfolio.mu.Lock()
	portfolio.advice = append([]models.Advice(nil), demoAdvice...)
	portfolio.mu.Unlock()

	return nil
}
