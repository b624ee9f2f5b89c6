package bot

import (
	"fmt"
	"strings"

	"tapx-earn-go/internal/models"
)

func startText(p *models.UserProfile, created bool) string {
	var sb strings.Builder
	if created {
		fmt.Fprintf(&sb, "Welcome, %s!\n\n", p.User.Name)
	} else {
		fmt.Fprintf(&sb, "Welcome back, %s!\n\n", p.User.Name)
	}
	sb.WriteString("Tap to earn coins and withdraw them to your UPI account.\n\n")
	fmt.Fprintf(&sb, "Invite friends with your link:\n%s\n", p.ReferralLink)
	sb.WriteString("You get a bonus once a friend reaches 100 taps.")
	return sb.String()
}

func balanceText(p *models.UserProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Balance: %s\n", p.User.Balance.StringFixed(3))
	fmt.Fprintf(&sb, "Tier: %s", p.EffectiveTier)
	if p.DaysUntilVipEnds > 0 {
		fmt.Fprintf(&sb, " (%d days left)", p.DaysUntilVipEnds)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Taps today left: %d of %d\n", p.DailyTapsLeft, p.Limits.DailyTapLimit)
	fmt.Fprintf(&sb, "Total taps: %d\n", p.User.TotalTaps)
	fmt.Fprintf(&sb, "Referrals: %d (earned %s)", p.User.ReferralCount, p.User.ReferralEarnings.StringFixed(2))
	return sb.String()
}

func vipText(s *models.Settings) string {
	return fmt.Sprintf("VIP tiers\n\n"+
		"VIP 1: x%s per tap, %d taps a day, %d Stars\n"+
		"VIP 2: x%s per tap, %d taps a day, %d Stars\n\n"+
		"Open the app to upgrade.",
		s.Vip1Multiplier, s.Vip1Limit, s.Vip1PriceStars,
		s.Vip2Multiplier, s.Vip2Limit, s.Vip2PriceStars)
}

func referralText(referred *models.User, entry models.LedgerEntry) string {
	return fmt.Sprintf("%s reached 100 taps. You earned a referral bonus of %s!",
		referred.Name, entry.Amount.StringFixed(2))
}

func withdrawalCreatedText(w models.Withdrawal) string {
	return fmt.Sprintf("Withdrawal of %s to %s received. We will process it soon.",
		w.Amount.StringFixed(2), w.Destination)
}

func withdrawalProcessedText(w models.Withdrawal) string {
	var text string
	switch w.Status {
	case models.WithdrawalPaid:
		text = fmt.Sprintf("Your withdrawal of %s to %s has been paid.", w.Amount.StringFixed(2), w.Destination)
	case models.WithdrawalRejected:
		text = fmt.Sprintf("Your withdrawal of %s was rejected and the amount returned to your balance.", w.Amount.StringFixed(2))
	default:
		return ""
	}
	if w.AdminNote != "" {
		text += "\nNote: " + w.AdminNote
	}
	return text
}

func vipActivatedText(u *models.User) string {
	if u.VipExpiry == nil {
		return ""
	}
	return fmt.Sprintf("%s is active until %s.", strings.ToUpper(string(u.VipTier)), u.VipExpiry.UTC().Format("02 Jan 2006"))
}
