package models

// IgnoreRulesKey is the app_settings key holding the serialized ignore rule
// list (one tab-delimited record per line, insertion order preserved).
const IgnoreRulesKey = "ignore_rules"
