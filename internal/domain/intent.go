package domain

// DomainConfig is the optional DNS portion of an intent, present only when
// the order item carries a domain name.
type DomainConfig struct {
	Zone        string   `json:"zone"`
	Nameservers []string `json:"nameservers"`
	DedicatedIP bool     `json:"dedicated_ip"`
	PointMX     bool     `json:"point_mx"`
	TargetIP    string   `json:"target_ip"`
	MailHost    string   `json:"mail_host"`
}

// Intent is the fully resolved desired end-state for one purchased service
// instance. It is a value object: computed on demand, embedded into job
// payloads, never persisted on its own. Building an intent from identical
// inputs must yield an identical value.
type Intent struct {
	Kind             ServiceKind   `json:"kind"`
	OrderID          string        `json:"order_id"`
	TenantID         string        `json:"tenant_id"`
	PlanCode         string        `json:"plan_code"`
	CPUCores         int           `json:"cpu_cores"`
	MemoryMB         int           `json:"memory_mb"`
	DiskGB           int           `json:"disk_gb"`
	Mailboxes        int           `json:"mailboxes"`
	StackFlags       []string      `json:"stack_flags"`
	BackupTier       BackupTier    `json:"backup_tier"`
	EmailTier        EmailTier     `json:"email_tier"`
	InternalHostname string        `json:"internal_hostname"`
	Domain           *DomainConfig `json:"domain,omitempty"`
}

// Capabilities returns the job types this intent requires, in a fixed order.
// DNS only when a domain was supplied, mail only when the plan carries an
// email tier, hosting or pod per the plan kind.
func (in Intent) Capabilities() []JobType {
	var types []JobType
	if in.Domain != nil {
		types = append(types, JobProvisionDNS)
	}
	switch in.Kind {
	case KindPod:
		types = append(types, JobProvisionPod)
	default:
		types = append(types, JobProvisionHosting)
	}
	if in.EmailTier != EmailNone {
		types = append(types, JobProvisionMail)
	}
	return types
}
