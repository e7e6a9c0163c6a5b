package gorestx

const buildVersion = "0.9.0"
