package domain

// ServiceKind identifies what class of infrastructure a plan provisions.
type ServiceKind string

const (
	KindHosting ServiceKind = "hosting"
	KindPod     ServiceKind = "pod"
)

// BackupTier controls how often a provisioned service is backed up.
type BackupTier string

const (
	BackupNone   BackupTier = "none"
	BackupDaily  BackupTier = "daily"
	BackupHourly BackupTier = "hourly"
)

// EmailTier controls whether and how mailboxes are provisioned.
type EmailTier string

const (
	EmailNone     EmailTier = "none"
	EmailStandard EmailTier = "standard"
	EmailPlus     EmailTier = "plus"
)

// Plan is a purchasable catalog entry. Plans are immutable: changes to the
// catalog never retroactively alter intents that already snapshotted a plan.
type Plan struct {
	Code       string
	Name       string
	Kind       ServiceKind
	CPUCores   int
	MemoryMB   int
	DiskGB     int
	Mailboxes  int
	StackFlags []string
	BackupTier BackupTier
	EmailTier  EmailTier
	Disabled   bool
}

// InfraConfig holds the infrastructure endpoints and addressing facts an
// intent snapshots at build time.
type InfraConfig struct {
	DNSHost        string
	MailHost       string
	HypervisorHost string
	SharedIP       string
	Nameservers    []string
	InternalSuffix string
}

// OrderItem is one purchased service instance from an accepted order.
type OrderItem struct {
	OrderID    string
	TenantID   string
	PlanCode   string
	DomainName string
	Label      string
}
