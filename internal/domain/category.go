package domain

import "sort"

// CategoryTier groups categories that share a priority and SLA window.
type CategoryTier string

const (
	TierCritical      CategoryTier = "critical"
	TierStandard      CategoryTier = "standard"
	TierMinor         CategoryTier = "minor"
	TierInformational CategoryTier = "informational"
)

// Category is one entry of the fixed ticket classification catalogue.
type Category struct {
	Key         string
	Description string
	Tier        CategoryTier
	Priority    TicketPriority
	SLAHours    int
}

type tierSpec struct {
	priority TicketPriority
	slaHours int
}

var tiers = map[CategoryTier]tierSpec{
	TierCritical:      {priority: TicketPriorityUrgent, slaHours: 4},
	TierStandard:      {priority: TicketPriorityMedium, slaHours: 24},
	TierMinor:         {priority: TicketPriorityLow, slaHours: 48},
	TierInformational: {priority: TicketPriorityLow, slaHours: 72},
}

var categoryTiers = map[CategoryTier]map[string]string{
	TierCritical: {
		"internet_outage":           "Total loss of internet connectivity that blocks work",
		"os_boot_failure":           "Operating system does not boot on an essential machine",
		"malware_detected":          "Virus or malware detected on a work machine",
		"email_access_lost":         "Email access lost on every device",
		"critical_hardware_failure": "Critical hardware failure (disk, board)",
		"essential_platform_error":  "Error accessing an essential platform (ERP, CRM)",
		"account_lockout":           "User account fully locked out",
	},
	TierStandard: {
		"intermittent_internet":  "Intermittent internet for some users",
		"printer_issues":         "Minor printer problems",
		"software_installation":  "Software or tool installation request",
		"non_critical_app_error": "Error in a non-critical application",
		"cloud_sync_issues":      "Cloud file synchronisation problems",
		"password_reset":         "Password reset for a non-critical service",
		"tool_config_issue":      "Tool configuration failure",
	},
	TierMinor: {
		"mobile_email_setup":    "Set up email on a mobile device",
		"software_usage_help":   "How-to question about basic software tasks",
		"file_access_issue":     "Minor file or folder access problem",
		"peripheral_setup":      "Printer or scanner setup",
		"remote_access_setup":   "Remote access (VPN) setup",
		"non_critical_software": "Install non-critical software",
		"minor_display_errors":  "Minor display or graphics glitches",
	},
	TierInformational: {
		"advanced_feature_help": "Question about advanced software features",
		"ui_cosmetic_requests":  "Cosmetic interface change request",
		"future_updates_info":   "Question about upcoming updates",
		"disk_space_management": "Free up space on a personal disk",
		"cleanup_request":       "Remove unused files or applications",
		"documentation_errors":  "Minor error in internal documentation",
		"support_process_help":  "Question about support procedures",
	},
}

var categories = buildCategories()

func buildCategories() map[string]Category {
	out := make(map[string]Category)
	for tier, entries := range categoryTiers {
		rule := tiers[tier]
		for key, description := range entries {
			out[key] = Category{
				Key:         key,
				Description: description,
				Tier:        tier,
				Priority:    rule.priority,
				SLAHours:    rule.slaHours,
			}
		}
	}
	return out
}

// LookupCategory returns the catalogue entry for key.
func LookupCategory(key string) (Category, bool) {
	category, ok := categories[key]
	return category, ok
}

// Categories lists the catalogue ordered by SLA window, then key.
func Categories() []Category {
	out := make([]Category, 0, len(categories))
	for _, category := range categories {
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SLAHours != out[j].SLAHours {
			return out[i].SLAHours < out[j].SLAHours
		}
		return out[i].Key < out[j].Key
	})
	return out
}
