package crm

// Custom contact property names holding validation results in the CRM.
const (
	PropertyMXValid       = "email_valid_mx"
	PropertyIsDisposable  = "email_is_disposable"
	PropertyIsBlacklisted = "email_is_blacklisted"
	PropertyIsFreeProvider = "email_is_free_provider"
	PropertyStatus        = "email_validation_status"
	PropertyMessage       = "email_validation_message"
)

// contactPropertyGroup is the standard CRM group the properties live under.
const contactPropertyGroup = "contactinformation"

type propertyOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type propertyDefinition struct {
	Label     string
	Type      string
	FieldType string
	Options   []propertyOption
}

var boolOptions = []propertyOption{
	{Label: "True", Value: "true"},
	{Label: "False", Value: "false"},
}

// validationProperties is the allowlist of properties this service may write.
// Updates referencing any other key are filtered out before the request.
var validationProperties = map[string]propertyDefinition{
	PropertyMXValid:        {Label: "Email MX Valid", Type: "enumeration", FieldType: "booleancheckbox", Options: boolOptions},
	PropertyIsDisposable:   {Label: "Email Is Disposable", Type: "enumeration", FieldType: "booleancheckbox", Options: boolOptions},
	PropertyIsBlacklisted:  {Label: "Email Is Blacklisted", Type: "enumeration", FieldType: "booleancheckbox", Options: boolOptions},
	PropertyIsFreeProvider: {Label: "Email Is Free Provider", Type: "enumeration", FieldType: "booleancheckbox", Options: boolOptions},
	PropertyStatus:         {Label: "Email Validation Status", Type: "string", FieldType: "text"},
	PropertyMessage:        {Label: "Email Validation Message", Type: "string", FieldType: "text"},
}

// filterValidationProperties drops any keys outside the allowlist.
func filterValidationProperties(props map[string]string) map[string]string {
	filtered := make(map[string]string, len(props))
	for k, v := range props {
		if _, ok := validationProperties[k]; ok {
			filtered[k] = v
		}
	}
	return filtered
}
